package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sneadict/backend/internal/services"
)

type RecordHandler struct {
	recordService   services.RecordService
	searchService   services.SearchService
	rollbackService services.RollbackService
}

func NewRecordHandler(recordService services.RecordService, searchService services.SearchService, rollbackService services.RollbackService) *RecordHandler {
	return &RecordHandler{
		recordService:   recordService,
		searchService:   searchService,
		rollbackService: rollbackService,
	}
}

func (rh *RecordHandler) Get(c *gin.Context) {
	id, ok := intParam(c, "recordID")
	if !ok {
		return
	}
	detail, err := rh.recordService.Get(requestDBC(c), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, detail)
}

func (rh *RecordHandler) ListBySource(c *gin.Context) {
	sourceID, ok := intParam(c, "sourceID")
	if !ok {
		return
	}
	status := c.Query("status")
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, total, err := rh.recordService.ListBySource(requestDBC(c), sourceID, status, offset, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"records": records, "total": total})
}

func (rh *RecordHandler) SaveMDF(c *gin.Context) {
	id, ok := intParam(c, "recordID")
	if !ok {
		return
	}
	var req struct {
		MDFText         string `json:"mdf_text"`
		ExpectedVersion int    `json:"expected_version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	sessionID, err := rh.recordService.SaveMDF(requestDBC(c), id, req.MDFText, req.ExpectedVersion, userEmail(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"session_id": sessionID})
}

func (rh *RecordHandler) Delete(c *gin.Context) {
	id, ok := intParam(c, "recordID")
	if !ok {
		return
	}
	if err := rh.recordService.SoftDelete(requestDBC(c), id, userEmail(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

func (rh *RecordHandler) Approve(c *gin.Context) {
	id, ok := intParam(c, "recordID")
	if !ok {
		return
	}
	if err := rh.recordService.Approve(requestDBC(c), id, userEmail(c)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "approved"})
}

func (rh *RecordHandler) History(c *gin.Context) {
	id, ok := intParam(c, "recordID")
	if !ok {
		return
	}
	hist, err := rh.recordService.History(requestDBC(c), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"history": hist})
}

func (rh *RecordHandler) Search(c *gin.Context) {
	term := c.Query("term")
	if term == "" {
		RespondError(c, http.StatusBadRequest, "invalid_argument", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	hits, err := rh.searchService.Lookup(requestDBC(c), term, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"hits": hits})
}

func (rh *RecordHandler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	ids, err := rh.rollbackService.ListRollbackableSessions(requestDBC(c), userEmail(c), limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"sessions": ids})
}

func (rh *RecordHandler) RollbackSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	res, err := rh.rollbackService.RollbackSession(requestDBC(c), sessionID, userEmail(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, res)
}

func (rh *RecordHandler) CreateSource(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	src, err := rh.recordService.CreateSource(requestDBC(c), req.Name, req.Description)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, src)
}

func (rh *RecordHandler) ListSources(c *gin.Context) {
	sources, err := rh.recordService.ListSources(requestDBC(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"sources": sources})
}

func (rh *RecordHandler) DeleteSource(c *gin.Context) {
	id, ok := intParam(c, "sourceID")
	if !ok {
		return
	}
	if err := rh.recordService.DeleteSource(requestDBC(c), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
