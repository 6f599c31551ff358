package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"autolot/internal/config"
	"autolot/internal/interfaces"
)

type CarImageHandler struct {
	repo          interfaces.CarRepository
	s3Client      *s3.Client
	bucket        string
	publicBaseURL string
}

func NewCarImageHandler(repo interfaces.CarRepository, s3Config *config.S3Config) *CarImageHandler {
	return &CarImageHandler{
		repo:          repo,
		s3Client:      s3Config.Client,
		bucket:        s3Config.Bucket,
		publicBaseURL: s3Config.PublicBaseURL,
	}
}

// UploadImages handles POST /api/v1/cars/{id}/images. Up to five images per
// request are uploaded to S3 and their public URLs appended to the car.
//
// @Tags Cars
// @Summary Upload car images
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Car ID"
// @Param images formData file true "Image files"
// @Success 200 {object} models.Car
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/cars/{id}/images [post]
func (h *CarImageHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	carID := chi.URLParam(r, "id")
	if carID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Car ID is required")
		return
	}

	if _, err := h.repo.GetByID(r.Context(), carID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "car_not_found", "No car found with that ID")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "upload_failed", "Failed to validate car")
		return
	}

	const maxMemory = 32 << 20 // 32MB max memory
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse form")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "No images uploaded")
		return
	}
	if len(files) > 5 {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "At most 5 images per upload")
		return
	}

	uploader := manager.NewUploader(h.s3Client)

	var urls []string
	for _, fileHeader := range files {
		switch fileHeader.Header.Get("Content-Type") {
		case "image/jpeg", "image/png", "image/webp":
		default:
			writeJSONError(w, http.StatusBadRequest, "validation_error", "Only JPEG, PNG and WebP images are accepted")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			log.Printf("Failed to open file %s: %v", fileHeader.Filename, err)
			continue
		}

		key := filepath.Join("cars", carID, uuid.NewString()+filepath.Ext(fileHeader.Filename))

		_, err = uploader.Upload(r.Context(), &s3.PutObjectInput{
			Bucket:      aws.String(h.bucket),
			Key:         aws.String(key),
			Body:        file,
			ContentType: aws.String(fileHeader.Header.Get("Content-Type")),
		})
		file.Close()

		if err != nil {
			log.Printf("Failed to upload file %s to S3: %v", fileHeader.Filename, err)
			continue
		}

		urls = append(urls, strings.TrimRight(h.publicBaseURL, "/")+"/"+key)
	}

	if len(urls) == 0 {
		writeJSONError(w, http.StatusInternalServerError, "upload_failed", "Failed to upload any files")
		return
	}

	car, err := h.repo.AppendImages(r.Context(), carID, urls)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "upload_failed", "Failed to save image URLs")
		return
	}

	writeJSON(w, http.StatusOK, car)
}
