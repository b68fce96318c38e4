package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/service"
)

// NewRouter wires the REST surface. Write endpoints answer 201 on success;
// the one historical exception is content block deletion, which answers 200.
func NewRouter(entities *service.EntityService, users *service.UserService, buckets *service.BucketService) *http.ServeMux {
	h := &handler{entities: entities, users: users, buckets: buckets}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.health)

	mux.HandleFunc("GET /api/entities", h.getStructure)
	mux.HandleFunc("POST /api/entities", h.createEntity)
	mux.HandleFunc("GET /api/entities/get_all_libraries", h.listLibraries)
	mux.HandleFunc("POST /api/entities/add_library", h.createLibrary)

	mux.HandleFunc("GET /api/entities/{id}", h.getEntity)
	mux.HandleFunc("PATCH /api/entities/{id}", h.updateEntity)
	mux.HandleFunc("PUT /api/entities/{id}", h.addTextBlock)
	mux.HandleFunc("DELETE /api/entities/{id}", h.deleteEntity)

	mux.HandleFunc("GET /api/entities/{id}/notebook_parent", h.notebookParent)
	mux.HandleFunc("POST /api/entities/{id}/toggle_bookmark", h.toggleBookmark)
	mux.HandleFunc("PUT /api/entities/{id}/add_image_block", h.addImageBlock)
	mux.HandleFunc("PUT /api/entities/{id}/add_comment", h.addComment)
	mux.HandleFunc("PUT /api/entities/{id}/add_comment_reply/{commentID}", h.addCommentReply)
	mux.HandleFunc("DELETE /api/entities/{id}/resolve_comment/{commentID}", h.resolveComment)
	mux.HandleFunc("PUT /api/entities/{id}/target_bucket", h.targetBucket)
	mux.HandleFunc("GET /api/entities/{id}/unset_target/{bucketID}", h.unsetTargetBucket)

	mux.HandleFunc("GET /api/entities/{id}/{blockID}", h.getContentBlock)
	mux.HandleFunc("PATCH /api/entities/{id}/{blockID}", h.editTextBlock)
	mux.HandleFunc("POST /api/entities/{id}/{blockID}", h.editImageBlock)
	mux.HandleFunc("DELETE /api/entities/{id}/{blockID}", h.deleteContentBlock)

	mux.HandleFunc("GET /api/properties/users", h.listUsers)
	mux.HandleFunc("POST /api/properties/users", h.addUser)
	mux.HandleFunc("PUT /api/properties/users/{email}", h.setUserColor)
	mux.HandleFunc("GET /api/properties/types", h.listTypes)

	mux.HandleFunc("GET /api/data/buckets", h.listBuckets)
	mux.HandleFunc("POST /api/data/buckets", h.createBucket)

	return mux
}

type handler struct {
	entities *service.EntityService
	users    *service.UserService
	buckets  *service.BucketService
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusCreated, "Server is running")
}

func (h *handler) getEntity(w http.ResponseWriter, r *http.Request) {
	entity, err := h.entities.GetEntity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if entity.Deleted {
		writeError(w, service.ErrEntityNotFound)
		return
	}

	// double-encoded, the consumer re-parses the returned string
	raw, err := json.Marshal(entity.Wire())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, string(raw))
}

func (h *handler) getStructure(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("ID")
	if id == "" {
		writeText(w, http.StatusNotFound, "ID is required")
		return
	}

	tree, err := h.entities.GetStructure(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *handler) createEntity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string `json:"name"`
		User       string `json:"user"`
		Type       string `json:"type"`
		Parent     string `json:"parent"`
		UnderChild string `json:"under_child"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, err := h.entities.CreateEntity(r.Context(), body.Name, body.User, body.Type, body.Parent, body.UnderChild)
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Entity added")
}

func (h *handler) updateEntity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.NewName == "" {
		writeText(w, http.StatusBadRequest, "New name of entity is required")
		return
	}

	if err := h.entities.RenameEntity(r.Context(), r.PathValue("id"), body.NewName); err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Entity name changed")
}

func (h *handler) deleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := h.entities.DeleteEntity(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Entity deleted")
}

func (h *handler) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	if err := h.entities.ToggleBookmark(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Bookmark toggled")
}

func (h *handler) createLibrary(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		User string `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.entities.CreateLibrary(r.Context(), body.Name, body.User); err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Library added")
}

func (h *handler) listLibraries(w http.ResponseWriter, r *http.Request) {
	libraries, err := h.entities.ListLibraries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]string, 0, len(libraries))
	for _, library := range libraries {
		out = append(out, map[string]string{"ID": library.ID, "name": library.Name})
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handler) notebookParent(w http.ResponseWriter, r *http.Request) {
	id, err := h.entities.NotebookParent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, id)
}

func (h *handler) addTextBlock(w http.ResponseWriter, r *http.Request) {
	var content string
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := username(r)
	underChild := r.URL.Query().Get("under_child")
	if _, err := h.entities.AddTextBlock(r.Context(), r.PathValue("id"), user, content, underChild); err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Content block added")
}

func (h *handler) editTextBlock(w http.ResponseWriter, r *http.Request) {
	var content string
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.entities.EditTextBlock(r.Context(), r.PathValue("id"), r.PathValue("blockID"), username(r), content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Content block edited successfully")
}

func (h *handler) deleteContentBlock(w http.ResponseWriter, r *http.Request) {
	err := h.entities.DeleteContentBlock(r.Context(), r.PathValue("id"), r.PathValue("blockID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, "Content block deleted")
}

func (h *handler) getContentBlock(w http.ResponseWriter, r *http.Request) {
	entity, err := h.entities.GetEntity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	blockID := r.PathValue("blockID")
	var block *model.ContentBlock
	for _, candidate := range entity.ContentBlocks {
		if candidate.ID == blockID {
			block = candidate
			break
		}
	}
	if block == nil || block.Deleted {
		writeError(w, service.ErrContentBlockNotFound)
		return
	}

	switch block.BlockType {
	case model.BlockTypeImage, model.BlockTypeImageLink:
		version, err := block.LatestImage()
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := h.entities.ImageContent(r.Context(), entity.ID, blockID)
		if err != nil {
			writeError(w, err)
			return
		}
		// the t query parameter only busts browser caches, the bytes served
		// are always the latest version
		contentType := mime.TypeByExtension(filepath.Ext(version.Key))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		version, err := block.LatestText()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, string(version))
	}
}

func (h *handler) addImageBlock(w http.ResponseWriter, r *http.Request) {
	filename, data, err := imageUpload(r)
	if err != nil {
		writeText(w, http.StatusBadRequest, "image file is required")
		return
	}

	title := r.URL.Query().Get("title")
	if title == "" {
		title = filename
	}
	underChild := r.URL.Query().Get("under_child")
	_, err = h.entities.AddImageBlock(r.Context(), r.PathValue("id"), username(r), filename, title, data, underChild)
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Content block added")
}

func (h *handler) editImageBlock(w http.ResponseWriter, r *http.Request) {
	filename, data, err := imageUpload(r)
	if err != nil {
		// a pure retitle carries no file
		filename, data = "", nil
	}

	title := r.URL.Query().Get("title")
	err = h.entities.EditImageBlock(r.Context(), r.PathValue("id"), r.PathValue("blockID"), username(r), filename, title, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Content block edited successfully")
}

func (h *handler) addComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := r.URL.Query().Get("content_block_id")
	_, err := h.entities.AddComment(r.Context(), r.PathValue("id"), target, username(r), body.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Comment added")
}

func (h *handler) addCommentReply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReplyBody string `json:"reply_body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.entities.AddCommentReply(r.Context(), r.PathValue("id"), r.PathValue("commentID"), username(r), body.ReplyBody)
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Reply added")
}

func (h *handler) resolveComment(w http.ResponseWriter, r *http.Request) {
	err := h.entities.ResolveComment(r.Context(), r.PathValue("id"), r.PathValue("commentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Comment resolved")
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	known, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	// double-encoded like entities, the consumer re-parses the string
	raw, err := json.Marshal(known)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, string(raw))
}

func (h *handler) addUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeText(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.users.AddUser(r.Context(), body.Email, body.Name); err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "User added")
}

func (h *handler) setUserColor(w http.ResponseWriter, r *http.Request) {
	color := r.URL.Query().Get("color")
	if err := h.users.SetUserColor(r.Context(), r.PathValue("email"), color); err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "User color set")
}

func (h *handler) listTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, model.EntityTypes())
}

func (h *handler) listBuckets(w http.ResponseWriter, r *http.Request) {
	found, err := h.buckets.ListBuckets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]string, 0, len(found))
	for _, bucket := range found {
		out = append(out, map[string]string{"ID": bucket.ID, "name": bucket.Name})
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handler) createBucket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	_, err := h.buckets.CreateBucket(r.Context(), query.Get("name"), query.Get("user"), query.Get("location"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Bucket added")
}

func (h *handler) targetBucket(w http.ResponseWriter, r *http.Request) {
	err := h.buckets.TargetBucket(r.Context(), r.PathValue("id"), r.URL.Query().Get("bucket_ID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Target set")
}

func (h *handler) unsetTargetBucket(w http.ResponseWriter, r *http.Request) {
	err := h.buckets.UnsetTargetBucket(r.Context(), r.PathValue("id"), r.PathValue("bucketID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, http.StatusCreated, "Target unset")
}

// username reads the author from either of the query parameter spellings
// clients use.
func username(r *http.Request) string {
	if user := r.URL.Query().Get("user"); user != "" {
		return user
	}
	return r.URL.Query().Get("username")
}

func imageUpload(r *http.Request) (string, []byte, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		writeText(w, http.StatusInternalServerError, "encoding failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// writeError maps service sentinels onto the wire statuses clients key on.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEntityNotFound),
		errors.Is(err, service.ErrContentBlockNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNoNotebookParent):
		writeText(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidChildType):
		writeText(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidType),
		errors.Is(err, service.ErrNotABucket),
		errors.Is(err, service.ErrUserExists),
		errors.Is(err, model.ErrMalformedVersion),
		errors.Is(err, model.ErrUnknownBlockType),
		errors.Is(err, model.ErrNoVersions):
		writeText(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLibraryThroughEntities),
		errors.Is(err, service.ErrLocationNotFound):
		writeText(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrBucketExists):
		writeText(w, http.StatusPaymentRequired, err.Error())
	default:
		logrus.Errorf("unhandled service error: %v", err)
		writeText(w, http.StatusInternalServerError, "Something went wrong, try again")
	}
}
