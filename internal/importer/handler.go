package importer

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/quizbank/backend/internal/extract"
	"github.com/quizbank/backend/internal/models"
	"github.com/quizbank/backend/internal/parser"
)

type Handler struct {
	sessions *SessionManager
}

func NewHandler(sessions *SessionManager) *Handler {
	return &Handler{sessions: sessions}
}

type createSessionRequest struct {
	ChapterID int64 `json:"chapter_id"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.ChapterID <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "chapter_id is required"})
		return
	}
	writeJSON(w, http.StatusCreated, h.sessions.Create(req.ChapterID))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type parseRequest struct {
	Kind models.InputKind `json:"kind,omitempty"`
	Text string           `json:"text,omitempty"`
	Data []byte           `json:"data,omitempty"` // base64 in JSON
}

func (h *Handler) ParseInput(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Kind == "" {
		req.Kind = models.InputText
	}
	if req.Text == "" && len(req.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "text or data is required"})
		return
	}

	s, err := h.sessions.Parse(r.Context(), mux.Vars(r)["id"], parser.Input{
		Kind: req.Kind,
		Text: req.Text,
		Data: req.Data,
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

const maxUploadBytes = 16 << 20

type uploadResponse struct {
	Session     models.ImportSession `json:"session"`
	Diagnostics []string             `json:"diagnostics,omitempty"`
}

// UploadFile accepts a multipart document upload. Text formats go through the
// extractor; images and PDFs are handed to the pipeline as binary input.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "file field is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Failed to read upload"})
		return
	}
	if len(data) > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "文件过大（上限16MB）"})
		return
	}

	in := parser.Input{Kind: models.InputText}
	var diags []string
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".png", ".jpg", ".jpeg":
		in = parser.Input{Kind: models.InputImage, Data: data}
	case ".pdf":
		in = parser.Input{Kind: models.InputPDF, Data: data}
	default:
		res := extract.FromFile(header.Filename, data)
		diags = res.Diagnostics
		if strings.TrimSpace(res.Text) == "" {
			msg := "未能从文件中提取文本"
			if len(diags) > 0 {
				msg = diags[0]
			}
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msg})
			return
		}
		in.Text = res.Text
	}

	s, err := h.sessions.Parse(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Session: s, Diagnostics: diags})
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question index"})
		return
	}

	var q models.ImportQuestionData
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	entry, err := h.sessions.UpdateQuestion(vars["id"], index, q)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) RemoveQuestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question index"})
		return
	}
	if err := h.sessions.RemoveQuestion(vars["id"], index); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ConfirmImport(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Confirm(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s)
}

type progressResponse struct {
	State  models.ImportState   `json:"state"`
	Event  ImportEvent          `json:"event"`
	Result *models.ImportResult `json:"result,omitempty"`
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ev, result, err := h.sessions.Progress(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{State: s.State, Event: ev, Result: result})
}

func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Cancel(mux.Vars(r)["id"]); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Import session not found"})
	case errors.Is(err, ErrInvalidState):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrIndexOutOfRange):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Question index out of range"})
	default:
		log.Printf("WARN: import session error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
