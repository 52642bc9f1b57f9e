package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/pipeline"
)

type chunkRequest struct {
	Markdown  string `json:"markdown"`
	MaxTokens int    `json:"max_tokens"`
	Strategy  string `json:"strategy"`
}

type chunkResponse struct {
	Title    string          `json:"title,omitempty"`
	Pages    int             `json:"pages,omitempty"`
	Strategy string          `json:"strategy"`
	Count    int             `json:"count"`
	Chunks   []doctree.Chunk `json:"chunks"`
}

// handleChunk chunks synchronously. A JSON body carries markdown; a
// multipart body carries a document file that is parsed first.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		s.handleChunkDocument(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.chunkOptions(req.MaxTokens, req.Strategy)
	chunks, err := pipeline.ChunkSource(&doctree.Source{Markdown: req.Markdown}, opts)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeChunks(w, chunkResponse{Strategy: opts.Strategy, Chunks: chunks})
}

func (s *Server) handleChunkDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	maxTokens, err := formMaxTokens(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename, data, status, err := s.readUpload(file, header)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	opts := s.chunkOptions(maxTokens, r.FormValue("strategy"))
	doc, err := pipeline.ChunkDocument(data, filename, opts)
	switch {
	case errors.Is(err, pipeline.ErrInvalidFormat):
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	case err != nil:
		s.log.Error("chunk document failed", "file", filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeChunks(w, chunkResponse{Title: doc.Title, Pages: doc.Pages, Strategy: opts.Strategy, Chunks: doc.Chunks})
}

// chunkOptions merges request overrides into the configured options.
// maxTokens is clamped; zero keeps the configured budget.
func (s *Server) chunkOptions(maxTokens int, strategy string) pipeline.Options {
	opts := s.orchestrator.Options()
	opts.Chunker = s.cfg.Chunker(maxTokens)
	if strategy != "" {
		opts.Strategy = strategy
	}
	if opts.Strategy == "" {
		opts.Strategy = pipeline.StrategySemantic
	}
	opts.Logger = s.log
	return opts
}

func writeChunks(w http.ResponseWriter, resp chunkResponse) {
	if resp.Chunks == nil {
		resp.Chunks = []doctree.Chunk{}
	}
	resp.Count = len(resp.Chunks)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
