package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/migu"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

const (
	defaultClientOS = "android"
	iosClient       = "ios"
	gridLoginOnly   = "login"
	maxRecordPage   = 500
)

// vipClient is what decides which VIP zone grid a client sees.
type vipClient struct {
	os          string
	versionCode int
	channel     string
	userID      string
	province    string
}

// matches reports whether grid g is shown to the client.
func (v vipClient) matches(g *models.GameGrid) bool {
	if g.OS != "" && g.OS != v.os {
		return false
	}
	if g.VersionCodeMin > 0 && g.VersionCodeMin > v.versionCode {
		return false
	}
	if g.VersionCodeMax > 0 && g.VersionCodeMax < v.versionCode {
		return false
	}
	if v.channel != "" && len(g.Channels) > 0 && !g.Channels.Contains(v.channel) {
		return false
	}
	if g.Login == gridLoginOnly && (v.userID == "" || !g.HasMember(v.userID)) {
		return false
	}
	if len(g.Province) > 0 && (v.province == "" || !g.Province.Contains(v.province)) {
		return false
	}
	return true
}

// MiguPayInfo returns the caller's Migu coin balance, VIP state and the action of
// the VIP zone grid matching their client
// GET /migupay/user/info
func (h *Handlers) MiguPayInfo(c *gin.Context) {
	client := vipClient{os: param(c, "os"), channel: param(c, "channels"), versionCode: 1}
	if client.os == "" {
		client.os = defaultClientOS
	}
	if vc := param(c, "version_code"); vc != "" {
		n, err := util.ParseIntParam(vc)
		if err != nil || n == 0 {
			util.RespondInvalidArguments(c, "version_code", "version_code must be a non-zero integer")
			return
		}
		client.versionCode = n
	}

	ctx := c.Request.Context()
	user := util.CurrentUser(c)
	if user != nil {
		client.userID = user.ID
		client.province = h.userProvince(ctx, user)
	}

	grids, err := h.games.GridsByName(ctx, h.opts.VIPZoneGridName)
	if err != nil {
		util.RespondInternalError(c, "Failed to load grids")
		return
	}
	var vipAction *string
	for _, g := range grids {
		if client.matches(g) {
			action := g.Action
			vipAction = &action
			break
		}
	}

	hideMoney := h.opts.IOSHideMoney && client.os == iosClient
	var balance migu.Balance
	if !hideMoney && user != nil {
		if passID := h.passID(ctx, user); passID != "" {
			if balance, err = h.pay.BalanceAvailable(ctx, passID); err != nil {
				logger.Log.Warn("Migu balance unavailable", logger.WithUserID(user.ID), zap.Error(err))
				balance = migu.Balance{}
			}
		}
	}

	vip := migu.DefaultVIP()
	if user != nil && user.Phone != "" {
		if vip, err = h.pay.VIPLevel(ctx, user.Phone); err != nil {
			respondMigu(c, err)
			return
		}
	}

	util.RespondOK(c, gin.H{
		"hide_migu_money": hideMoney,
		"migu_money":      balance,
		"vip":             vip,
		"vip_action":      vipAction,
	})
}

// userProvince returns the stored province, looking it up and storing it when
// the account has a mobile phone. Lookup failures yield "".
func (h *Handlers) userProvince(ctx context.Context, user *models.User) string {
	if user.Province != "" || !util.IsMobilePhone(user.Phone) {
		return user.Province
	}
	province, err := h.center.UserInfo(ctx, user.Phone, migu.KeyProvince)
	if err != nil || province == "" {
		return ""
	}
	if err := h.users.UpdateProvince(ctx, user.ID, province); err != nil {
		logger.Log.Warn("Failed to store province", logger.WithUserID(user.ID), zap.Error(err))
	}
	user.Province = province
	return province
}

// passID returns the user's Migu pass id, looking it up and storing it on first use.
func (h *Handlers) passID(ctx context.Context, user *models.User) string {
	if user.MiguPassID != "" || user.Phone == "" {
		return user.MiguPassID
	}
	passID, err := h.center.UserInfo(ctx, user.Phone, migu.KeyPassID)
	if err != nil || passID == "" {
		return ""
	}
	if err := h.users.UpdateMiguPassID(ctx, user.ID, passID); err != nil {
		logger.Log.Warn("Failed to store pass id", logger.WithUserID(user.ID), zap.Error(err))
	}
	user.MiguPassID = passID
	return passID
}

// MiguVIPUnsubscribe cancels the caller's game VIP
// POST /migupay/vip/unsubscribe
func (h *Handlers) MiguVIPUnsubscribe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ret, err := h.pay.VIPUnsubscribe(c.Request.Context(), user.Phone)
	if err != nil {
		respondMigu(c, err)
		return
	}
	util.RespondOK(c, gin.H{"ret": ret})
}

// MiguMoneyRecords pages the caller's Migu coin recharges (query_type=1) or payments (2)
// GET /migupay/money/record
func (h *Handlers) MiguMoneyRecords(c *gin.Context) {
	h.payRecords(c, true, h.pay.MoneyRecords)
}

// MiguPresentRecords pages the Migu coins given to the caller
// GET /migupay/present/record
func (h *Handlers) MiguPresentRecords(c *gin.Context) {
	h.payRecords(c, false, h.pay.PresentRecords)
}

func (h *Handlers) payRecords(c *gin.Context, typed bool, fetch func(context.Context, migu.RecordQuery) (*migu.Records, error)) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	keys := []string{"start_at", "end_at", "page", "nbr"}
	if typed {
		keys = append([]string{"query_type"}, keys...)
	}
	p, ok := required(c, keys...)
	if !ok {
		return
	}
	page, err := util.ParseIntParam(p["page"])
	if err != nil || page < 1 {
		util.RespondInvalidArguments(c, "page", "page must be a positive integer")
		return
	}
	size, err := util.ParseIntParam(p["nbr"])
	if err != nil || size < 1 || size > maxRecordPage {
		util.RespondInvalidArguments(c, "nbr", "nbr must be between 1 and 500")
		return
	}

	ctx := c.Request.Context()
	passID := h.passID(ctx, user)
	if passID == "" {
		util.RespondOK(c, &migu.Records{Records: []map[string]any{}})
		return
	}
	records, err := fetch(ctx, migu.RecordQuery{
		PassID:    passID,
		QueryType: p["query_type"],
		StartAt:   p["start_at"],
		EndAt:     p["end_at"],
		Page:      page,
		Size:      size,
	})
	if err != nil {
		respondMigu(c, err)
		return
	}
	util.RespondOK(c, records)
}
