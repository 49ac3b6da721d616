package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pricingfeeds-backend/api/responses"
	"github.com/angelmondragon/pricingfeeds-backend/api/validators"
	"github.com/angelmondragon/pricingfeeds-backend/internal/ingest"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/config"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
)

// Multipart memory ceiling; larger uploads spill to temp files.
const maxMultipartMemory = 32 << 20

type uploadService interface {
	Accept(ctx context.Context, fileName string, file io.Reader) (string, error)
}

type statusReader interface {
	Get(ctx context.Context, taskID string) (*ingest.TaskRecord, error)
}

// UploadFeedFile handles CSV uploads. The file is spooled to disk and queued
// for the ingestion worker; the caller polls the returned task id.
func UploadFeedFile(cfg *config.Config, svc uploadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		maxBytes := int64(cfg.Ingest.MaxUploadMB) << 20
		if r.ContentLength > maxBytes {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("upload exceeds the %d MB limit", cfg.Ingest.MaxUploadMB)))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err,
						fmt.Sprintf("upload exceeds the %d MB limit", cfg.Ingest.MaxUploadMB)))
				return
			}
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart request"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart field \"file\" is required"))
			return
		}
		defer file.Close()

		taskID, err := svc.Accept(r.Context(), validators.SanitizeFilename(header.Filename), file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{
			"message": "file accepted for ingestion",
			"task_id": taskID,
		})
	}
}

// TaskStatus handles ingestion progress lookups. Unknown task ids report
// PENDING rather than 404 so clients can poll immediately after upload.
func TaskStatus(store statusReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "status store unavailable"))
			return
		}

		taskID := strings.TrimSpace(chi.URLParam(r, "taskID"))
		if taskID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "task id is required"))
			return
		}

		record, err := store.Get(r.Context(), taskID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, taskStatusResponse{
			TaskID:       record.TaskID,
			Status:       record.Status,
			Reason:       record.Reason,
			RowsIngested: record.RowsIngested,
		})
	}
}

type taskStatusResponse struct {
	TaskID       string           `json:"task_id"`
	Status       enums.TaskStatus `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	RowsIngested *int             `json:"rows_ingested,omitempty"`
}
