package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/service"
	"github.com/njprem/Porder_APP_BackEnd/internal/util"
)

type EmailHandler struct {
	service *service.EmailService
}

func RegisterEmail(e *echo.Echo, svc *service.EmailService) {
	h := &EmailHandler{service: svc}

	group := e.Group("/api/email")
	group.POST("/send", h.send)
	group.POST("/template", h.saveTemplate)
	group.GET("/history", h.history)
	group.DELETE("/history/delete", h.deleteHistory)
	group.DELETE("/history/clear", h.clearHistory)
}

type sendRequest struct {
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentPath string `json:"attachmentPath"`
	TemplateID     string `json:"templateId"`
	ScheduleTime   string `json:"scheduleTime"`
}

func (h *EmailHandler) send(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}

	in := service.SendInput{
		To:            req.To,
		Subject:       req.Subject,
		Body:          req.Body,
		AttachmentKey: req.AttachmentPath,
		TemplateName:  strings.TrimSpace(req.TemplateID),
	}
	if raw := strings.TrimSpace(req.ScheduleTime); raw != "" {
		at, err := parseScheduleTime(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("scheduleTime must be an RFC 3339 timestamp"))
		}
		in.ScheduleTime = &at
	}

	result, err := h.service.Send(c.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailMissingFields):
			return c.JSON(http.StatusBadRequest, util.Error("필수 필드가 누락되었습니다. (받는 사람, 제목, 첨부파일)"))
		case errors.Is(err, service.ErrAttachmentNotFound):
			return c.JSON(http.StatusNotFound, util.Error("첨부파일을 찾을 수 없습니다."))
		default:
			return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("이메일 전송 중 오류가 발생했습니다.", err.Error()))
		}
	}

	resp := util.Envelope{"success": true}
	switch {
	case result.Scheduled:
		resp["scheduled"] = true
		resp["scheduleTime"] = result.ScheduleTime
		resp["message"] = fmt.Sprintf("이메일이 %s에 전송되도록 예약되었습니다.", result.ScheduleTime.Format(time.RFC3339))
	case result.Simulation:
		resp["simulation"] = true
		resp["messageId"] = result.MessageID
		resp["sentAt"] = result.SentAt
		resp["message"] = fmt.Sprintf("이메일이 시뮬레이션으로 전송되었습니다. (%s)", in.To)
	default:
		resp["messageId"] = result.MessageID
		resp["sentAt"] = result.SentAt
		resp["message"] = fmt.Sprintf("이메일이 성공적으로 전송되었습니다. (%s)", in.To)
	}
	return c.JSON(http.StatusOK, resp)
}

func parseScheduleTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid schedule time")
}

type templateRequest struct {
	TemplateName string   `json:"templateName"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Recipients   []string `json:"recipients"`
}

func (h *EmailHandler) saveTemplate(c echo.Context) error {
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	tpl, err := h.service.SaveTemplate(c.Request().Context(), domain.EmailTemplate{
		Name:       req.TemplateName,
		Subject:    req.Subject,
		Body:       req.Body,
		Recipients: req.Recipients,
	})
	if err != nil {
		if errors.Is(err, service.ErrTemplateNameEmpty) {
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("템플릿 저장 중 오류가 발생했습니다.", err.Error()))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"success":    true,
		"message":    "이메일 템플릿이 저장되었습니다.",
		"templateId": tpl.Name,
	})
}

func (h *EmailHandler) history(c echo.Context) error {
	entries, err := h.service.History(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("이력 조회 중 오류가 발생했습니다.", err.Error()))
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true, "history": entries})
}

type deleteHistoryRequest struct {
	Indices []int `json:"indices"`
}

func (h *EmailHandler) deleteHistory(c echo.Context) error {
	var req deleteHistoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid payload"))
	}
	if len(req.Indices) == 0 {
		return c.JSON(http.StatusBadRequest, util.Error("삭제할 항목을 선택해주세요."))
	}
	removed, err := h.service.DeleteHistory(c.Request().Context(), req.Indices)
	if err != nil {
		if errors.Is(err, domain.ErrHistoryIndexOutOfRange) {
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("이력 삭제 중 오류가 발생했습니다.", err.Error()))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"success":      true,
		"deletedCount": removed,
		"message":      fmt.Sprintf("%d개 항목이 삭제되었습니다.", removed),
	})
}

func (h *EmailHandler) clearHistory(c echo.Context) error {
	if err := h.service.ClearHistory(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, util.ErrorWithDetails("이력 삭제 중 오류가 발생했습니다.", err.Error()))
	}
	return c.JSON(http.StatusOK, util.Envelope{"success": true, "message": "전송 이력이 모두 삭제되었습니다."})
}
