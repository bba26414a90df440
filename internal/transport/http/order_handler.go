package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/service"
	"github.com/njprem/Porder_APP_BackEnd/internal/tabular"
	"github.com/njprem/Porder_APP_BackEnd/internal/util"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderHandler struct {
	uploads    *service.UploadService
	mappings   *service.MappingService
	conversion *service.ConversionService
}

func RegisterOrders(e *echo.Echo, uploads *service.UploadService, mappings *service.MappingService, conversion *service.ConversionService) {
	h := &OrderHandler{uploads: uploads, mappings: mappings, conversion: conversion}

	group := e.Group("/api/orders")
	group.POST("/upload", h.upload)
	group.POST("/mapping", h.saveMapping)
	group.POST("/generate", h.generate)
	group.GET("/download/:fileName", h.download)
}

func (h *OrderHandler) upload(c echo.Context) error {
	file, err := c.FormFile("orderFile")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("파일이 업로드되지 않았습니다."))
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("unable to read upload"))
	}
	defer src.Close()

	limit := h.uploads.MaxFileBytes()
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("failed reading upload"))
	}

	result, err := h.uploads.Upload(c.Request().Context(), file.Filename, data)
	if err != nil {
		var parseErr *tabular.ParseError
		switch {
		case errors.Is(err, service.ErrUploadEmpty), errors.Is(err, service.ErrUnsupportedFormat):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.Is(err, service.ErrUploadTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, util.Error(err.Error()))
		case errors.As(err, &parseErr):
			return c.JSON(http.StatusBadRequest, util.ErrorWithDetails("파일을 읽을 수 없습니다.", err.Error()))
		default:
			return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("파일 처리 중 오류가 발생했습니다.", err.Error()))
		}
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"success":     true,
		"fileName":    result.FileName,
		"fileId":      result.FileID,
		"headers":     result.Headers,
		"previewData": result.PreviewData,
		"totalRows":   result.TotalRows,
		"validation":  result.Validation,
		"summary":     result.Summary,
		"message":     fmt.Sprintf("파일이 성공적으로 업로드되었습니다. %d행의 데이터를 확인했습니다.", result.TotalRows),
	})
}

type mappingRequest struct {
	MappingName  string            `json:"mappingName"`
	SourceFields []string          `json:"sourceFields"`
	TargetFields []string          `json:"targetFields"`
	MappingRules map[string]string `json:"mappingRules"`
}

func (h *OrderHandler) saveMapping(c echo.Context) error {
	var req mappingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	def, err := h.mappings.Save(c.Request().Context(), service.MappingInput{
		Name:         req.MappingName,
		SourceFields: req.SourceFields,
		TargetFields: req.TargetFields,
		Rules:        domain.Mapping(req.MappingRules),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidMapping) {
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("매핑 저장 중 오류가 발생했습니다.", err.Error()))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"success":   true,
		"message":   "매핑 규칙이 저장되었습니다.",
		"mappingId": def.Name,
	})
}

type generateRequest struct {
	FileID       string `json:"fileId"`
	MappingID    string `json:"mappingId"`
	TemplateType string `json:"templateType"`
}

func (h *OrderHandler) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	if strings.TrimSpace(req.FileID) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("fileId is required"))
	}

	result, err := h.conversion.ConvertStored(c.Request().Context(), req.FileID, req.MappingID, req.TemplateType)
	if err != nil {
		var parseErr *tabular.ParseError
		switch {
		case errors.Is(err, service.ErrSourceNotFound):
			return c.JSON(http.StatusNotFound, util.Error("업로드된 파일을 찾을 수 없습니다."))
		case errors.Is(err, service.ErrUnknownSchema), errors.Is(err, tabular.ErrUnsupportedFormat), errors.As(err, &parseErr):
			return c.JSON(http.StatusBadRequest, util.ErrorWithDetails("발주서를 생성할 수 없습니다.", err.Error()))
		default:
			return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("발주서 생성 중 오류가 발생했습니다.", err.Error()))
		}
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"success":       true,
		"generatedFile": result.FileName,
		"downloadUrl":   result.DownloadURL,
		"processedRows": result.ProcessedRows,
		"totalRows":     result.TotalRows,
		"usedTemplate":  result.UsedTemplate,
		"errors":        result.Errors,
		"message":       "발주서가 성공적으로 생성되었습니다.",
	})
}

func (h *OrderHandler) download(c echo.Context) error {
	name := path.Base(c.Param("fileName"))
	if name == "." || name == "/" || name == "" {
		return c.JSON(http.StatusBadRequest, util.Error("file name is required"))
	}
	data, err := h.conversion.Download(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("파일을 찾을 수 없습니다."))
		}
		return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("파일 다운로드 중 오류가 발생했습니다.", err.Error()))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}
