package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/errors"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/metrics"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

// SMSJob is the queue job that texts a moderator group.
const SMSJob = "send_sms"

// reportAlerts are the SMS bodies, indexed by report source.
var reportAlerts = [...]string{
	models.ReportFromVideo:   `用户ID %s，标题为"%s"的视频正在被举报，请尽快审核`,
	models.ReportFromLive:    `房间号为%s，标题为"%s"的直播正在被举报，请尽快审核`,
	models.ReportFromComment: `用户%s针对"%s"视频的评论正在被举报，请尽快审核`,
	models.ReportFromReply:   `用户%s针对"%s"评论的回复正在被举报，请尽快审核`,
}

// reportTarget is what a report points at: its owner and a title for the alert.
type reportTarget struct {
	owner string
	title string
}

// ReportVideo reports a video or a live room
// POST /user/report-video
func (h *Handlers) ReportVideo(c *gin.Context) {
	h.report(c, param(c, "video_id"), "video_id", []models.ReportSource{models.ReportFromVideo, models.ReportFromLive})
}

// Report reports a video, live room, comment or reply
// POST /user/report
func (h *Handlers) Report(c *gin.Context) {
	h.report(c, param(c, "target_id"), "target_id", []models.ReportSource{
		models.ReportFromVideo, models.ReportFromLive, models.ReportFromComment, models.ReportFromReply,
	})
}

// CheckReport answers ALREADY_EXISTS when the caller already reported the target
// GET|POST /user/report/check
func (h *Handlers) CheckReport(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	tid := param(c, "target_id")
	source, err := parseSource(param(c, "source"))
	if tid == "" || err != nil || !source.Valid() {
		util.RespondInvalidArguments(c, "", "target_id and a valid source are required")
		return
	}
	exists, err := h.reports.Exists(c.Request.Context(), tid, source, user.ID)
	if err != nil {
		util.RespondInternalError(c, "Failed to check report")
		return
	}
	if exists {
		util.RespondWithAPIError(c, errors.AlreadyExists("report"))
		return
	}
	util.RespondOK(c, gin.H{})
}

func (h *Handlers) report(c *gin.Context, tid, field string, allowed []models.ReportSource) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if tid == "" {
		util.RespondInvalidArguments(c, field, field+" is required")
		return
	}
	reason, err := util.ParseIntParam(param(c, "type"))
	if err != nil || reason == 0 {
		util.RespondInvalidArguments(c, "type", "type is required")
		return
	}
	source, err := parseSource(param(c, "source"))
	if err != nil || !sourceIn(source, allowed) {
		util.RespondInvalidArguments(c, "source", "unknown source")
		return
	}

	ctx := c.Request.Context()
	target, ok := h.reportTarget(c, tid, source)
	if !ok {
		return
	}

	h.withLock(c, "lock:reports:object:"+tid, "report", func() {
		err := h.reports.Create(ctx, &models.ReportVideo{
			UID:      target.owner,
			Target:   tid,
			Source:   source,
			Reporter: user.ID,
			Type:     reason,
			Content:  param(c, "content"),
		})
		if stderrors.Is(err, repository.ErrAlreadyReported) {
			util.RespondWithAPIError(c, errors.AlreadyExists("report"))
			return
		}
		if util.HandleDBError(c, err, "report") {
			return
		}
		logger.Log.Info("Report filed",
			zap.String("target", tid),
			zap.Int("source", int(source)),
			logger.WithUserID(user.ID),
		)
		h.alertIfOverLimit(ctx, tid, source, target)
		util.RespondOK(c, gin.H{})
	})
}

// reportTarget resolves the reported object. Live rooms are not stored here and
// are accepted as given.
func (h *Handlers) reportTarget(c *gin.Context, tid string, source models.ReportSource) (reportTarget, bool) {
	ctx := c.Request.Context()
	switch source {
	case models.ReportFromVideo:
		video, err := h.videos.GetAny(ctx, tid)
		if util.HandleDBError(c, err, "video") {
			return reportTarget{}, false
		}
		return reportTarget{owner: video.Author, title: video.Title}, true
	case models.ReportFromComment:
		comment, found, err := h.comments.Get(ctx, tid)
		if err != nil {
			util.RespondInternalError(c, "Failed to fetch comment")
			return reportTarget{}, false
		}
		if !found {
			util.RespondNotFound(c, "comment")
			return reportTarget{}, false
		}
		return reportTarget{owner: comment.Author, title: comment.Content}, true
	case models.ReportFromReply:
		reply, found, err := h.comments.GetReply(ctx, tid)
		if err != nil {
			util.RespondInternalError(c, "Failed to fetch reply")
			return reportTarget{}, false
		}
		if !found {
			util.RespondNotFound(c, "reply")
			return reportTarget{}, false
		}
		return reportTarget{owner: reply.Owner, title: reply.Content}, true
	default:
		return reportTarget{}, true
	}
}

// alertIfOverLimit queues an SMS to the source's moderator group once the target
// has collected the configured number of reports. Failures are logged only.
func (h *Handlers) alertIfOverLimit(ctx context.Context, tid string, source models.ReportSource, target reportTarget) {
	cfg, err := h.reports.ConfigFor(ctx, source)
	if err != nil {
		if !stderrors.Is(err, repository.ErrReportConfigNone) {
			logger.Log.Warn("Failed to load report config", zap.Error(err))
		}
		return
	}
	if cfg.MaxLimit <= 0 {
		return
	}
	count, err := h.reports.Count(ctx, tid, source)
	if err != nil {
		logger.Log.Warn("Failed to count reports", zap.String("target", tid), zap.Error(err))
		return
	}
	if count < int64(cfg.MaxLimit) {
		return
	}

	id := target.owner
	if source == models.ReportFromLive {
		id = tid
	}
	err = h.jobs.Enqueue(ctx, SMSJob, map[string]string{
		"group":   cfg.Group,
		"content": fmt.Sprintf(reportAlerts[source], id, target.title),
	})
	metrics.RecordReportAlert(err)
	if err != nil {
		logger.Log.Error("Failed to queue report alert", zap.String("target", tid), zap.Error(err))
	}
}

func parseSource(s string) (models.ReportSource, error) {
	if s == "" {
		return models.ReportFromVideo, nil
	}
	n, err := strconv.Atoi(s)
	return models.ReportSource(n), err
}

func sourceIn(s models.ReportSource, allowed []models.ReportSource) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
