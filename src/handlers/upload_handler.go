package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/username/cardstock/backend/src/config"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/security/validation"
	"github.com/username/cardstock/backend/src/services"
	"github.com/username/cardstock/backend/src/utils"
)

// UploadHandler serves the spreadsheet import endpoints. Preview and
// confirm are separate uploads of the same file; nothing is cached
// server-side between them.
type UploadHandler struct {
	importService *services.ImportService
}

func NewUploadHandler(service *services.ImportService) *UploadHandler {
	return &UploadHandler{importService: service}
}

// openUpload parses the multipart form, enforces the size limit and
// validates both the declared content type and the magic bytes before
// any parser touches the file.
func openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return nil, nil, false
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return nil, nil, false
	}

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		file.Close()
		logger.L.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB (header check)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return nil, nil, false
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		file.Close()
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		file.Close()
		logger.L.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	logger.L.Info("Upload validated", "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)
	return file, fileHeader, true
}

func sendImportError(w http.ResponseWriter, filename string, err error) {
	switch {
	case errors.Is(err, services.ErrParsingFailed):
		logger.L.Warn("Import failed during parsing", "filename", filename, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error parsing file: %v", err), http.StatusBadRequest)
	case errors.Is(err, services.ErrProcessingFailed):
		logger.L.Warn("Import failed during processing", "filename", filename, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error processing records in file: %v", err), http.StatusBadRequest)
	default:
		logger.L.Error("Internal error processing upload", "filename", filename, "error", err)
		utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
	}
}

func (h *UploadHandler) HandlePreviewMarketplaceSales(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, ok := openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	preview, err := h.importService.PreviewMarketplaceSales(file)
	if err != nil {
		sendImportError(w, fileHeader.Filename, err)
		return
	}
	utils.SendJSON(w, preview, http.StatusOK)
}

func (h *UploadHandler) HandleImportMarketplaceSales(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, ok := openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.importService.ImportMarketplaceSales(file)
	if err != nil {
		sendImportError(w, fileHeader.Filename, err)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

func (h *UploadHandler) HandlePreviewPurchases(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, ok := openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	preview, err := h.importService.PreviewPurchases(file)
	if err != nil {
		sendImportError(w, fileHeader.Filename, err)
		return
	}
	utils.SendJSON(w, preview, http.StatusOK)
}

func (h *UploadHandler) HandleImportPurchases(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, ok := openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.importService.ImportPurchases(file)
	if err != nil {
		sendImportError(w, fileHeader.Filename, err)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

// HandleImportBackup restores records from a previously exported CSV.
func (h *UploadHandler) HandleImportBackup(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, ok := openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.importService.ImportBackupCSV(file)
	if err != nil {
		sendImportError(w, fileHeader.Filename, err)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}
