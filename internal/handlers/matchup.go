package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sneadict/backend/internal/pkg/dbctx"
	"github.com/sneadict/backend/internal/services"
)

// MatchupHandler exposes the staging queue workflow: upload, suggest,
// review, apply.
type MatchupHandler struct {
	stagingService services.StagingService
	matchService   services.MatchService
	applyService   services.ApplyService
}

func NewMatchupHandler(stagingService services.StagingService, matchService services.MatchService, applyService services.ApplyService) *MatchupHandler {
	return &MatchupHandler{
		stagingService: stagingService,
		matchService:   matchService,
		applyService:   applyService,
	}
}

func requestDBC(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

func userEmail(c *gin.Context) string {
	return c.GetString("userEmail")
}

func batchIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("batchID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return uuid.Nil, false
	}
	return id, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return 0, false
	}
	return n, true
}

func (mh *MatchupHandler) Stage(c *gin.Context) {
	var req struct {
		SourceID int    `json:"source_id"`
		Filename string `json:"filename"`
		MDFText  string `json:"mdf_text"`
	}
	if file, err := c.FormFile("file"); err == nil {
		req.SourceID, _ = strconv.Atoi(c.PostForm("source_id"))
		req.Filename = file.Filename
		f, err := file.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_argument", err)
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_argument", err)
			return
		}
		req.MDFText = string(data)
	} else if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}

	batchID, count, err := mh.stagingService.StageText(requestDBC(c), userEmail(c), req.SourceID, req.MDFText, req.Filename)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"batch_id": batchID, "staged": count})
}

func (mh *MatchupHandler) ListBatches(c *gin.Context) {
	batches, err := mh.stagingService.ListPendingBatches(requestDBC(c), userEmail(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"batches": batches})
}

func (mh *MatchupHandler) BatchMDF(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	text, err := mh.stagingService.GetPendingBatchMDF(requestDBC(c), batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=batch.mdf")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (mh *MatchupHandler) Suggest(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	sugs, err := mh.matchService.SuggestMatches(requestDBC(c), batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": sugs})
}

func (mh *MatchupHandler) Rematch(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	sugs, err := mh.matchService.Rematch(requestDBC(c), batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": sugs})
}

func (mh *MatchupHandler) AutoRemoveDuplicates(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	removed, err := mh.matchService.AutoRemoveExactDuplicates(requestDBC(c), batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, removed)
}

func (mh *MatchupHandler) FlagHmMismatches(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	flags, err := mh.matchService.FlagHmMismatches(requestDBC(c), batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"flags": flags})
}

func (mh *MatchupHandler) FlagHeadwordDistance(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	threshold, _ := strconv.Atoi(c.DefaultQuery("threshold", "0"))
	flags, err := mh.matchService.FlagHeadwordDistance(requestDBC(c), batchID, threshold)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"flags": flags})
}

func (mh *MatchupHandler) ConfirmMatch(c *gin.Context) {
	queueID, ok := intParam(c, "queueID")
	if !ok {
		return
	}
	var req struct {
		RecordID *int `json:"record_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	if err := mh.matchService.ConfirmMatch(requestDBC(c), queueID, req.RecordID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "confirmed"})
}

func (mh *MatchupHandler) MarkAsHomonym(c *gin.Context) {
	mh.markRow(c, mh.matchService.MarkAsHomonym)
}

func (mh *MatchupHandler) MarkAsIgnored(c *gin.Context) {
	mh.markRow(c, mh.matchService.MarkAsIgnored)
}

func (mh *MatchupHandler) MarkAsDiscard(c *gin.Context) {
	mh.markRow(c, mh.matchService.MarkAsDiscard)
}

func (mh *MatchupHandler) markRow(c *gin.Context, mark func(dbctx.Context, int) error) {
	queueID, ok := intParam(c, "queueID")
	if !ok {
		return
	}
	if err := mark(requestDBC(c), queueID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "marked"})
}

func (mh *MatchupHandler) DiscardAll(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	n, err := mh.matchService.DiscardAll(requestDBC(c), batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"discarded": n})
}

func (mh *MatchupHandler) DiscardMarked(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	n, err := mh.matchService.DiscardMarked(requestDBC(c), batchID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"discarded": n})
}

func (mh *MatchupHandler) ApplyRow(c *gin.Context) {
	queueID, ok := intParam(c, "queueID")
	if !ok {
		return
	}
	var req struct {
		DefaultLanguageID int    `json:"default_language_id"`
		SessionID         string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	sessionID := uuid.New()
	if req.SessionID != "" {
		parsed, err := uuid.Parse(req.SessionID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_argument", err)
			return
		}
		sessionID = parsed
	}
	res, err := mh.applyService.ApplySingle(requestDBC(c), queueID, userEmail(c), req.DefaultLanguageID, sessionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": res, "session_id": sessionID})
}

func (mh *MatchupHandler) ApproveAllNewSource(c *gin.Context) {
	mh.bulkApply(c, mh.applyService.ApproveAllNewSource)
}

func (mh *MatchupHandler) ApproveAllByRecordMatch(c *gin.Context) {
	mh.bulkApply(c, mh.applyService.ApproveAllByRecordMatch)
}

func (mh *MatchupHandler) ApproveNonMatchesAsNew(c *gin.Context) {
	mh.bulkApply(c, mh.applyService.ApproveNonMatchesAsNew)
}

func (mh *MatchupHandler) bulkApply(c *gin.Context, apply func(dbctx.Context, uuid.UUID, string, int, services.ProgressFunc) (*services.BulkApplyResult, error)) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	var req struct {
		DefaultLanguageID int `json:"default_language_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	res, err := apply(requestDBC(c), batchID, userEmail(c), req.DefaultLanguageID, nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, res)
}
