package handlers

import (
	"net/http"
	"strconv"

	"carbon-filing/internal/models"
	"carbon-filing/internal/service"
	"carbon-filing/internal/storage"
	"carbon-filing/pkg/validator"
)

// maxUploadSize caps a single multipart upload at 50 MB
const maxUploadSize = 50 << 20

// FileHandler handles evidence file requests
type FileHandler struct {
	mapper *service.FileMapperService
	store  *storage.Store
}

// NewFileHandler creates a new file handler
func NewFileHandler(mapper *service.FileMapperService, store *storage.Store) *FileHandler {
	return &FileHandler{mapper: mapper, store: store}
}

// Upload stores evidence files for a record
// @Summary Upload evidence files
// @Description Multipart upload; files are associated to the record eagerly
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files to upload"
// @Param record_id formData string true "Record ID"
// @Param page_key formData string true "Page key"
// @Param file_type formData string true "File type"
// @Param entry_id formData string false "Entry ID if one exists already"
// @Param month formData int false "Month, required for usage evidence"
// @Param all_record_ids formData string false "Additional record IDs sharing the files"
// @Success 201 {object} map[string][]string
// @Failure 400 {object} map[string]string "Validation failed"
// @Router /files [post]
// @Security BearerAuth
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := callerIdentity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	in := service.UploadInput{
		RecordID:     r.FormValue("record_id"),
		EntryID:      r.FormValue("entry_id"),
		OwnerID:      userID,
		PageKey:      r.FormValue("page_key"),
		FileType:     models.FileType(r.FormValue("file_type")),
		AllRecordIDs: r.MultipartForm.Value["all_record_ids"],
	}
	if monthStr := r.FormValue("month"); monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "month must be a number")
			return
		}
		if err := validator.ValidateMonth(month); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Month = &month
	}

	fileHeaders := r.MultipartForm.File["files"]
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		defer f.Close()

		in.Files = append(in.Files, service.FileUpload{
			FileName: validator.SanitizeFileName(fh.Filename),
			MimeType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Content:  f,
		})
	}

	fileIDs, err := h.mapper.UploadForRecord(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	_ = JSONResponse(w, map[string][]string{"file_ids": fileIDs})
}

// Delete removes one evidence file
// @Summary Delete an evidence file
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "File not found"
// @Router /files/{id} [delete]
// @Security BearerAuth
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := callerIdentity(r); !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.mapper.DeleteFile(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = JSONResponse(w, map[string]string{"status": "deleted"})
}

// Download redirects to a presigned URL for the file's blob
// @Summary Download an evidence file
// @Tags Files
// @Param id path string true "File ID"
// @Success 307 "Redirect to presigned URL"
// @Failure 404 {object} map[string]string "File not found"
// @Router /files/{id}/download [get]
// @Security BearerAuth
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := callerIdentity(r); !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	file, err := h.mapper.GetFile(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if file == nil {
		respondWithError(w, http.StatusNotFound, "File not found")
		return
	}

	url, err := h.store.PresignedURL(r.Context(), file.FilePath, file.FileName)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to presign download")
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
