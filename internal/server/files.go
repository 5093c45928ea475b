package server

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sharebox/internal/store"
)

type uploadRequest struct {
	UserID   flexID `json:"userId" validate:"required,gt=0"`
	Filename string `json:"filename" validate:"required,max=1024"`
	FileData string `json:"fileData" validate:"required"`
}

type uploadResponse struct {
	Message string `json:"message"`
	FileID  int64  `json:"fileId"`
}

type shareRequest struct {
	FileID            flexID `json:"fileId" validate:"required,gt=0"`
	OwnerID           flexID `json:"ownerId" validate:"required,gt=0"`
	ShareWithUsername string `json:"shareWithUsername" validate:"required,max=64"`
}

func (r *shareRequest) normalize() {
	r.ShareWithUsername = strings.TrimSpace(r.ShareWithUsername)
}

type fileListResponse[T any] struct {
	Files []T `json:"files"`
}

type downloadResponse struct {
	File store.File `json:"file"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !s.decodeJSON(w, r, &req, "userId, filename, and fileData required") {
		return
	}

	filename := SanitizeFilename(req.Filename)
	id, err := s.store.UploadFile(r.Context(), int64(req.UserID), filename, req.FileData)
	if err != nil {
		s.writeStoreError(w, r, err, "Upload failed")
		return
	}

	s.metrics.RecordUpload(int64(len(req.FileData)))
	s.logger(r).Info("file uploaded",
		zap.Int64("file_id", id),
		zap.Int64("user_id", int64(req.UserID)),
		zap.Int("size_bytes", len(req.FileData)),
	)
	writeJSON(w, http.StatusOK, uploadResponse{Message: "File uploaded successfully", FileID: id})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "Invalid user id")
		return
	}

	files, err := s.store.GetUserFiles(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, r, err, "Failed to get files")
		return
	}
	writeJSON(w, http.StatusOK, fileListResponse[store.FileSummary]{Files: files})
}

func (s *Server) handleSharedFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "Invalid user id")
		return
	}

	files, err := s.store.GetSharedFiles(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, r, err, "Failed to get shared files")
		return
	}
	writeJSON(w, http.StatusOK, fileListResponse[store.SharedFile]{Files: files})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(r, "fileId")
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "Invalid file id")
		return
	}

	f, err := s.store.GetFile(r.Context(), fileID)
	if err != nil {
		s.writeStoreError(w, r, err, "Error downloading file")
		return
	}

	s.metrics.RecordDownload(int64(len(f.Content)))
	writeJSON(w, http.StatusOK, downloadResponse{File: f})
}

// handleDownloadRaw serves the decoded body as an attachment.
func (s *Server) handleDownloadRaw(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(r, "fileId")
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "Invalid file id")
		return
	}

	f, err := s.store.GetFile(r.Context(), fileID)
	if err != nil {
		s.writeStoreError(w, r, err, "Error downloading file")
		return
	}

	body, mediaType, err := decodeFileData(f.Content)
	if err != nil {
		// Plain content that merely starts with "data:".
		s.logger(r).Debug("serving undecodable data url as-is", zap.Int64("file_id", fileID), zap.Error(err))
		body, mediaType = []byte(f.Content), ""
	}
	if mediaType == "" {
		mediaType = sniffContentType(body)
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": SanitizeFilename(f.Filename)})
	if disposition == "" {
		disposition = "attachment"
	}

	h := w.Header()
	h.Set("Content-Type", mediaType)
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)

	s.metrics.RecordDownload(int64(len(body)))
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if !s.decodeJSON(w, r, &req, "fileId, ownerId, and shareWithUsername required") {
		return
	}

	exists, targetID, err := s.store.CheckUserExists(r.Context(), req.ShareWithUsername)
	if err != nil {
		s.writeStoreError(w, r, err, "Error checking user")
		return
	}
	if !exists {
		s.writeError(w, r, http.StatusNotFound, "user_not_found", "User not found")
		return
	}

	if err := s.store.ShareFile(r.Context(), int64(req.FileID), int64(req.OwnerID), targetID); err != nil {
		s.writeStoreError(w, r, err, "Share failed")
		return
	}

	s.metrics.RecordShare()
	s.logger(r).Info("file shared",
		zap.Int64("file_id", int64(req.FileID)),
		zap.Int64("owner_id", int64(req.OwnerID)),
		zap.Int64("shared_with_user_id", targetID),
	)
	writeJSON(w, http.StatusOK, messageResponse{Message: "File shared successfully"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	fileID, okFile := pathID(r, "fileId")
	userID, okUser := pathID(r, "userId")
	if !okFile || !okUser {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "Invalid file or user id")
		return
	}

	if err := s.store.DeleteFile(r.Context(), fileID, userID); err != nil {
		s.writeStoreError(w, r, err, "Delete failed")
		return
	}

	s.metrics.RecordDelete()
	s.logger(r).Info("file deleted", zap.Int64("file_id", fileID), zap.Int64("user_id", userID))
	writeJSON(w, http.StatusOK, messageResponse{Message: "File deleted successfully"})
}
