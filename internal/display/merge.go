// Package display computes the linear rendering order of an entity's
// sub-entities and content blocks. It is the single authority for
// soft-delete filtering: callers render exactly what Merge returns.
package display

import (
	"sort"
	"time"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
)

// Kind tags a merged item so callers can dispatch to the right renderer.
type Kind int

const (
	KindEntity Kind = iota + 1
	KindContentBlock
)

// Item is one element of the merged sequence. Exactly one of Entity and
// Block is set, according to Kind. Malformed marks a content block whose
// versions do not match its block type; the item is still emitted so the
// caller can render a fallback notice in place.
type Item struct {
	Kind      Kind
	Entity    *model.Entity
	Block     *model.ContentBlock
	Malformed bool
}

// ID returns the underlying entity or block ID.
func (i Item) ID() string {
	if i.Kind == KindEntity && i.Entity != nil {
		return i.Entity.ID
	}
	if i.Block != nil {
		return i.Block.ID
	}
	return ""
}

// Options control merging. The zero value filters soft-deleted items.
type Options struct {
	// IncludeDeleted keeps soft-deleted entities and blocks in the output.
	IncludeDeleted bool
}

// Merged is the result of a merge pass.
type Merged struct {
	Items []Item
	// Pending lists child IDs present in the parent's children list with no
	// matching resolved entity. They are still loading, not an error; a new
	// merge pass picks them up once they resolve.
	Pending []string
}

// Merge produces the ordered display sequence for one parent entity given
// the child entities resolved so far. Resolved entities are matched by ID,
// never by position, since fetches complete in any order. When the parent
// carries an explicit order it wins verbatim; otherwise blocks interleave
// with sub-entities by creation time, with sub-entities anchored to their
// position in the children list. Pure function: identical inputs give
// identical output.
func Merge(parent *model.Entity, resolved []*model.Entity, opts Options) Merged {
	if parent == nil {
		return Merged{}
	}

	childIDs := parent.ChildIDs()

	entityByID := make(map[string]*model.Entity, len(resolved))
	for _, ent := range resolved {
		if ent != nil {
			entityByID[ent.ID] = ent
		}
	}

	var pending []string
	seenPending := make(map[string]bool)
	for _, id := range childIDs {
		if _, ok := entityByID[id]; !ok && !seenPending[id] {
			seenPending[id] = true
			pending = append(pending, id)
		}
	}

	// candidate entities keep children-list order
	entities := make([]*model.Entity, 0, len(childIDs))
	seenEntity := make(map[string]bool)
	for _, id := range childIDs {
		ent, ok := entityByID[id]
		if !ok || seenEntity[id] {
			continue
		}
		if ent.Deleted && !opts.IncludeDeleted {
			continue
		}
		seenEntity[id] = true
		entities = append(entities, ent)
	}

	blocks := make([]*model.ContentBlock, 0, len(parent.ContentBlocks))
	seenBlock := make(map[string]bool)
	for _, block := range parent.ContentBlocks {
		if block == nil || seenBlock[block.ID] {
			continue
		}
		if block.Deleted && !opts.IncludeDeleted {
			continue
		}
		seenBlock[block.ID] = true
		blocks = append(blocks, block)
	}

	var items []Item
	if entries := parent.OrderEntries(); len(entries) > 0 {
		items = mergeExplicit(entries, entities, blocks)
	} else {
		items = mergeByCreation(entities, blocks)
	}

	return Merged{Items: items, Pending: pending}
}

// mergeExplicit follows the parent's (id, kind) order verbatim. IDs that
// resolve to nothing are skipped; resolved items the order misses are
// appended at the end rather than silently dropped.
func mergeExplicit(entries []model.OrderEntry, entities []*model.Entity, blocks []*model.ContentBlock) []Item {
	entityByID := make(map[string]*model.Entity, len(entities))
	for _, ent := range entities {
		entityByID[ent.ID] = ent
	}
	blockByID := make(map[string]*model.ContentBlock, len(blocks))
	for _, block := range blocks {
		blockByID[block.ID] = block
	}

	items := make([]Item, 0, len(entities)+len(blocks))
	emitted := make(map[string]bool)
	for _, entry := range entries {
		if emitted[entry.ID] {
			continue
		}
		switch entry.Kind {
		case model.KindEntity:
			if ent, ok := entityByID[entry.ID]; ok {
				emitted[entry.ID] = true
				items = append(items, Item{Kind: KindEntity, Entity: ent})
			}
		case model.KindContentBlock, "content":
			if block, ok := blockByID[entry.ID]; ok {
				emitted[entry.ID] = true
				items = append(items, blockItem(block))
			}
		}
	}

	for _, ent := range entities {
		if !emitted[ent.ID] {
			emitted[ent.ID] = true
			items = append(items, Item{Kind: KindEntity, Entity: ent})
		}
	}
	for _, block := range sortedByCreation(blocks) {
		if !emitted[block.ID] {
			emitted[block.ID] = true
			items = append(items, blockItem(block))
		}
	}

	return items
}

// mergeByCreation interleaves blocks and entities by creation time. A
// sub-entity without a usable stamp inherits the effective stamp of the
// nearest preceding sibling, keeping the children-list anchoring
// deterministic. The sort is stable with blocks listed before entities, so
// equal stamps keep blocks first and same-kind items keep their relative
// order.
func mergeByCreation(entities []*model.Entity, blocks []*model.ContentBlock) []Item {
	type keyed struct {
		item Item
		at   time.Time
	}

	combined := make([]keyed, 0, len(entities)+len(blocks))
	for _, block := range blocks {
		combined = append(combined, keyed{item: blockItem(block), at: block.Creation()})
	}

	var lastEffective time.Time
	for _, ent := range entities {
		at := ent.Start()
		if at.IsZero() {
			at = lastEffective
		} else {
			lastEffective = at
		}
		combined = append(combined, keyed{item: Item{Kind: KindEntity, Entity: ent}, at: at})
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].at.Before(combined[j].at)
	})

	items := make([]Item, len(combined))
	for i, k := range combined {
		items[i] = k.item
	}
	return items
}

func sortedByCreation(blocks []*model.ContentBlock) []*model.ContentBlock {
	out := make([]*model.ContentBlock, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Creation().Before(out[j].Creation())
	})
	return out
}

func blockItem(block *model.ContentBlock) Item {
	return Item{Kind: KindContentBlock, Block: block, Malformed: malformed(block)}
}

// malformed reports whether the block's latest version cannot be rendered:
// an unrecognized block type, an empty history, or an image version that is
// not a [storageKey, title] pair.
func malformed(block *model.ContentBlock) bool {
	switch block.BlockType {
	case model.BlockTypeText, model.BlockTypeTable, model.BlockTypeCode:
		_, err := block.LatestText()
		return err != nil
	case model.BlockTypeImage, model.BlockTypeImageLink:
		_, err := block.LatestImage()
		return err != nil
	default:
		return true
	}
}
