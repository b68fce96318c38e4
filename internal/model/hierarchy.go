package model

// childTypes maps each entity type to the ordered set of child types that
// can be created beneath it.
var childTypes = map[string][]string{
	TypeLibrary:  {TypeNotebook},
	TypeNotebook: {TypeProject},
	TypeProject:  {TypeTask, TypeStep},
	TypeTask:     {TypeStep},
	TypeStep:     {},
	TypeBucket:   {TypeInstance},
	TypeInstance: {},
}

// EntityTypes lists every type creatable inside a notebook tree.
func EntityTypes() []string {
	return []string{TypeLibrary, TypeNotebook, TypeProject, TypeTask, TypeStep}
}

// AllowedChildren reports which entity types can be created under the given
// parent type. Unknown types get an empty set, never an error.
func AllowedChildren(parentType string) []string {
	children, ok := childTypes[parentType]
	if !ok {
		return []string{}
	}
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// ValidType reports whether the type exists in the hierarchy table.
func ValidType(entityType string) bool {
	_, ok := childTypes[entityType]
	return ok
}

// CanParent reports whether a child of childType may be created under a
// parent of parentType.
func CanParent(parentType, childType string) bool {
	for _, t := range AllowedChildren(parentType) {
		if t == childType {
			return true
		}
	}
	return false
}
