package handler

import (
	"regexp"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"evidapi/internal/http/middleware"
	"evidapi/internal/service"
)

var evidenceIDPattern = regexp.MustCompile(`^EV-\d{4}-\d+$`)

func evidenceID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	return id, evidenceIDPattern.MatchString(id)
}

// UploadEvidence registers a new evidence artifact from a multipart form
// (field "file") plus its case metadata.
func UploadEvidence(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := middleware.ActorFromCtx(c)
		if actor == nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		meta := service.RegisterRequest{
			CaseID:       c.FormValue("case_id"),
			Description:  c.FormValue("description"),
			EvidenceType: c.FormValue("evidence_type"),
			Notes:        c.FormValue("notes"),
		}

		ev, err := svc.Register(c.UserContext(), f, fh.Filename, ct, fh.Size, meta, actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ev)
	}
}

// ListEvidence returns evidence newest first with limit/offset pagination
// and optional case_id / status filters.
func ListEvidence(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), service.ListQuery{
			Limit:  limit,
			Offset: offset,
			CaseID: c.Query("case_id"),
			Status: c.Query("status"),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetEvidence returns a single evidence record.
func GetEvidence(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := evidenceID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid evidence id format")
		}
		ev, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(ev)
	}
}

type transferBody struct {
	ToRole string `json:"to_role"`
	ToName string `json:"to_name"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// TransferCustody hands custody of an evidence item to another role. Only
// the current custodian may call it successfully.
func TransferCustody(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := middleware.ActorFromCtx(c)
		if actor == nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials")
		}
		id, ok := evidenceID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid evidence id format")
		}
		var body transferBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		}

		res, err := svc.Transfer(c.UserContext(), id, service.TransferRequest{
			ToRole: body.ToRole,
			ToName: body.ToName,
			Reason: body.Reason,
			Notes:  body.Notes,
		}, actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// VerifyEvidence recomputes the artifact digest and reports whether it
// still matches the one recorded at registration. A mismatch is a 200
// with verified=false, not an error.
func VerifyEvidence(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := middleware.ActorFromCtx(c)
		if actor == nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials")
		}
		id, ok := evidenceID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid evidence id format")
		}

		res, err := svc.Verify(c.UserContext(), id, actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// EvidenceHistory returns the full custody timeline, oldest event first.
func EvidenceHistory(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := evidenceID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid evidence id format")
		}
		history, err := svc.History(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(history)
	}
}

// DownloadEvidence returns a presigned, time-limited URL for the artifact
// bytes; the ledger itself never proxies content.
func DownloadEvidence(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := evidenceID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid evidence id format")
		}
		url, err := svc.DownloadURL(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"download_url": url})
	}
}

// BeginAnalysis moves a verified or transferred item into analysis.
func BeginAnalysis(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := middleware.ActorFromCtx(c)
		if actor == nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials")
		}
		id, ok := evidenceID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid evidence id format")
		}
		ev, err := svc.BeginAnalysis(c.UserContext(), id, actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(ev)
	}
}

type archiveBody struct {
	Reason string `json:"reason"`
}

// ArchiveEvidence applies retention closure. Archived is terminal.
func ArchiveEvidence(svc service.EvidenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := middleware.ActorFromCtx(c)
		if actor == nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials")
		}
		id, ok := evidenceID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid evidence id format")
		}
		var body archiveBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		}
		ev, err := svc.Archive(c.UserContext(), id, body.Reason, actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(ev)
	}
}
