package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/crew-shifts-backend/internal/dto"
	"github.com/ignatzorin/crew-shifts-backend/internal/http/handlers/common"
	"github.com/ignatzorin/crew-shifts-backend/internal/pkg/apperror"
	"github.com/ignatzorin/crew-shifts-backend/internal/storage"
)

// Разрешённые типы фото для отметки о приходе
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heif": true,
}

// Разрешённые расширения файлов
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// EvidenceHandler принимает фото, которые потом прикладываются к отметке о приходе.
type EvidenceHandler struct {
	storage *storage.PhotoStorage
}

// NewEvidenceHandler создаёт новый хэндлер.
func NewEvidenceHandler(storage *storage.PhotoStorage) *EvidenceHandler {
	return &EvidenceHandler{storage: storage}
}

// UploadPhoto обрабатывает POST /evidence/photos (multipart: assignment_id, file).
func (h *EvidenceHandler) UploadPhoto(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondError(c, err)
		return
	}

	assignmentID, err := uuid.Parse(c.PostForm("assignment_id"))
	if err != nil {
		common.RespondError(c, apperror.New(apperror.ErrCodeValidation, "assignment_id должен быть валидным UUID"))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondError(c, apperror.New(apperror.ErrCodeValidation, "поле file обязательно"))
		return
	}

	if file.Size == 0 {
		common.RespondError(c, apperror.New(apperror.ErrCodeValidation, "файл не может быть пустым"))
		return
	}
	if file.Size > h.storage.MaxUploadBytes() {
		common.RespondError(c, apperror.New(apperror.ErrCodeValidation, "файл превышает допустимый размер"))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		common.RespondError(c, apperror.Newf(apperror.ErrCodeValidation, "неподдерживаемый формат файла %q", ext))
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondError(c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось открыть файл"))
		return
	}
	defer src.Close()

	// Первые 512 байт для проверки магических байтов
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		common.RespondError(c, apperror.New(apperror.ErrCodeValidation, "не удалось прочитать файл"))
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown || !allowedMimeTypes[kind.MIME.Value] {
		common.RespondError(c, apperror.New(apperror.ErrCodeValidation, "файл не является фотографией"))
		return
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			common.RespondError(c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сбросить позицию файла"))
			return
		}
	}

	handle, size, err := h.storage.Save(c.Request.Context(), assignmentID, file.Filename, src)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			common.RespondError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "файл превышает допустимый размер"))
			return
		}
		common.RespondError(c, apperror.Wrap(err, apperror.ErrCodeInternal, fmt.Sprintf("не удалось сохранить фото: %v", err)))
		return
	}

	c.JSON(http.StatusCreated, dto.PhotoUploadResponse{
		Handle:   handle,
		Size:     size,
		MimeType: kind.MIME.Value,
	})
}
