package labdragon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
)

func TestFetchEntityDecodesDoubleEncodedBody(t *testing.T) {
	entity := &model.Entity{
		ID:   "e1",
		Name: "Measurement run",
		Type: model.TypeTask,
		User: "alice@example.com",
	}
	inner, err := json.Marshal(entity.Wire())
	assert.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/entities/e1", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(string(inner))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).FetchEntity(context.Background(), "e1")
	assert.NoError(t, err)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "Measurement run", got.Name)
	assert.Equal(t, model.TypeTask, got.Type)
}

func TestFetchEntityMissingIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "entity not found", http.StatusNotFound)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).FetchEntity(context.Background(), "gone")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateEntitySendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/entities", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Step 1", body["name"])
		assert.Equal(t, model.TypeStep, body["type"])
		assert.Equal(t, "p1", body["parent"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).CreateEntity(context.Background(), "Step 1", "alice@example.com", model.TypeStep, "p1", "")
	assert.NoError(t, err)
}

func TestCreateEntityUnexpectedStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot parent that type", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).CreateEntity(context.Background(), "x", "u", model.TypeLibrary, "p1", "")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestAddTextBlockPutsJSONString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/entities/e1", r.URL.Path)
		assert.Equal(t, "alice@example.com", r.URL.Query().Get("username"))

		var content string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&content))
		assert.Equal(t, "hello world", content)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).AddTextBlock(context.Background(), "e1", "alice@example.com", "hello world", "")
	assert.NoError(t, err)
}

func TestDeleteContentBlockExpects200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).DeleteContentBlock(context.Background(), "e1", "b1")
	assert.NoError(t, err)
}

func TestAddImageBlockSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/entities/e1/add_image_block", r.URL.Path)
		assert.Equal(t, "Plot", r.URL.Query().Get("title"))

		file, header, err := r.FormFile("image")
		assert.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "plot.png", header.Filename)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).AddImageBlock(context.Background(), "e1", "alice@example.com", "plot.png", "Plot", []byte{0x89, 0x50}, "")
	assert.NoError(t, err)
}

func TestUsersDecodesDoubleEncodedList(t *testing.T) {
	users := []*model.User{{Email: "alice@example.com", Name: "Alice", Color: "#ff0000"}}
	inner, err := json.Marshal(users)
	assert.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/properties/users", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(string(inner))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Users(context.Background())
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "alice@example.com", got[0].Email)
}

func TestLibraryStructureExpects200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/entities", r.URL.Path)
		assert.Equal(t, "lib1", r.URL.Query().Get("ID"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"lib1","name":"Main","type":"Library","children":[]}`))
	}))
	defer srv.Close()

	tree, err := NewClient(srv.URL).LibraryStructure(context.Background(), "lib1")
	assert.NoError(t, err)
	assert.Equal(t, "lib1", tree.ID)
	assert.Equal(t, model.TypeLibrary, tree.Type)
}

func TestMergedChildrenTreatsMissingAsPending(t *testing.T) {
	parent := model.NewEntity("Task", "alice@example.com", model.TypeTask, "p0")
	parent.AddChild("c1")
	parent.AddChild("missing")
	block := model.NewTextBlock(parent.ID, "alice@example.com", "note")
	parent.ContentBlocks = []*model.ContentBlock{block}

	child := model.NewEntity("Step", "alice@example.com", model.TypeStep, parent.ID)
	child.ID = "c1"

	encoded := func(e *model.Entity) string {
		raw, err := json.Marshal(e.Wire())
		assert.NoError(t, err)
		return string(raw)
	}
	bodies := map[string]string{
		"/api/entities/" + parent.ID: encoded(parent),
		"/api/entities/c1":           encoded(child),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, "entity not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.FetchEntity(context.Background(), parent.ID)
	assert.NoError(t, err)

	merged, err := c.MergedChildren(context.Background(), got, false)
	assert.NoError(t, err)
	// AddChild put both children in the explicit order; the block the order
	// misses is appended after them
	assert.Equal(t, []string{"missing"}, merged.Pending)
	assert.Len(t, merged.Items, 2)
	assert.Equal(t, "c1", merged.Items[0].ID())
	assert.Equal(t, block.ID, merged.Items[1].ID())
}

func TestImageURLCarriesCacheBuster(t *testing.T) {
	c := NewClient("http://localhost:8000/")
	u := c.ImageURL("e1", "b1")
	assert.Contains(t, u, "http://localhost:8000/api/entities/e1/b1?t=")
}

func TestCreateBucketSendsQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data/buckets", r.URL.Path)
		assert.Equal(t, "runs", r.URL.Query().Get("name"))
		assert.Equal(t, "/data/runs", r.URL.Query().Get("location"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).CreateBucket(context.Background(), "runs", "alice@example.com", "/data/runs")
	assert.NoError(t, err)
}

func TestStatusErrTruncatesOnRuneBoundary(t *testing.T) {
	// a two-byte rune straddling the truncation point must not be split
	body := strings.Repeat("a", 199) + "é" + strings.Repeat("b", 50)
	err := statusErr(http.StatusInternalServerError, []byte(body))

	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), strings.Repeat("a", 199))
	assert.NotContains(t, err.Error(), "é")
}
