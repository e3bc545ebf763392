package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"

	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/dto"
	"github.com/wanxtv/wanx/backend/internal/errors"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/migu"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

// required reads every named parameter and answers 400 when one is empty.
func required(c *gin.Context, keys ...string) (map[string]string, bool) {
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		v := param(c, k)
		if v == "" {
			util.RespondInvalidArguments(c, k, k+" is required")
			return nil, false
		}
		values[k] = v
	}
	return values, true
}

func validPassword(c *gin.Context, field, password string) bool {
	if msg := util.ValidatePassword(password); msg != "" {
		util.RespondInvalidArguments(c, field, msg)
		return false
	}
	return true
}

// MiguChangePassword changes a Migu password. phone defaults to the caller's.
// GET|POST /migu/change_password
func (h *Handlers) MiguChangePassword(c *gin.Context) {
	oldPwd, newPwd, phone := param(c, "old_pwd"), param(c, "new_pwd"), param(c, "phone")
	if user := util.CurrentUser(c); phone == "" && user != nil {
		phone = user.Phone
	}
	if oldPwd == "" || newPwd == "" || phone == "" {
		util.RespondInvalidArguments(c, "", "phone, old_pwd and new_pwd are required")
		return
	}
	if !validPassword(c, "new_pwd", newPwd) {
		return
	}

	ctx := c.Request.Context()
	identity, err := h.center.IdentityID(ctx, phone, oldPwd)
	if err != nil {
		respondMigu(c, err)
		return
	}
	if err := h.center.UpdatePassword(ctx, identity, oldPwd, newPwd); err != nil {
		respondMigu(c, err)
		return
	}
	util.RespondOK(c, gin.H{})
}

// MiguRegister registers a phone with the Migu center and signs the caller in
// to the wanx account bound to it, creating or linking one as needed.
// GET|POST /migu/register_phone
func (h *Handlers) MiguRegister(c *gin.Context) {
	p, ok := required(c, "phone", "code", "sessionid", "password")
	if !ok || !validPassword(c, "password", p["password"]) {
		return
	}
	phone := p["phone"]

	ctx := c.Request.Context()
	if err := h.center.Register(ctx, phone, p["password"], p["code"], p["sessionid"]); err != nil {
		respondMigu(c, err)
		return
	}
	openID, err := h.center.IdentityID(ctx, phone, p["password"])
	if err != nil {
		respondMigu(c, err)
		return
	}

	user, err := h.bindMiguAccount(ctx, openID, phone)
	if err != nil {
		logger.Log.Error("Failed to bind Migu account", zap.String("openid", openID), zap.Error(err))
		util.RespondInternalError(c, "Failed to bind account")
		return
	}
	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		util.RespondInternalError(c, "Failed to issue token")
		return
	}
	logger.Log.Info("Migu account registered", logger.WithUserID(user.ID))
	util.RespondOK(c, gin.H{"user": dto.ToUserDetailResponse(user), "ut": token})
}

// bindMiguAccount returns the account for openID. An account already holding the
// phone is linked; otherwise a new one is created with the phone. A bound
// account without a phone takes this one when nobody else has it.
func (h *Handlers) bindMiguAccount(ctx context.Context, openID, phone string) (*models.User, error) {
	user, err := h.users.GetByMiguOpenID(ctx, openID)
	if err == nil {
		if user.Phone == "" {
			if _, err := h.users.GetByPhone(ctx, phone); stderrors.Is(err, repository.ErrUserNotFound) {
				if err := h.users.UpdatePhone(ctx, user.ID, phone); err != nil {
					return nil, err
				}
				user.Phone = phone
			}
		}
		return user, nil
	}
	if !stderrors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	if user, err = h.users.GetByPhone(ctx, phone); err == nil {
		if err := h.users.BindMigu(ctx, user.ID, openID); err != nil {
			return nil, err
		}
		user.MiguOpenID = openID
		return user, nil
	}
	if !stderrors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user, err = h.users.CreatePlatformUser(ctx, openID, "", miguNickname(openID))
	if err != nil {
		return nil, err
	}
	if err := h.users.UpdatePhone(ctx, user.ID, phone); err != nil {
		return nil, err
	}
	user.Phone = phone
	return user, nil
}

func miguNickname(openID string) string {
	suffix := openID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("咪咕用户%s%d", suffix, 1000+rand.IntN(9000))
}

// MiguResetPassword resets a Migu password with an SMS code
// GET|POST /migu/reset_password
func (h *Handlers) MiguResetPassword(c *gin.Context) {
	p, ok := required(c, "phone", "code", "sessionid", "password")
	if !ok || !validPassword(c, "password", p["password"]) {
		return
	}
	if err := h.center.ResetPassword(c.Request.Context(), p["phone"], p["password"], p["code"], p["sessionid"]); err != nil {
		respondMigu(c, err)
		return
	}
	util.RespondOK(c, gin.H{})
}

// MiguVerifyPhone answers ALREADY_EXISTS when phone is registered with Migu
// GET|POST /migu/verify_phone
func (h *Handlers) MiguVerifyPhone(c *gin.Context) {
	p, ok := required(c, "phone")
	if !ok {
		return
	}
	free, err := h.center.CheckAccount(c.Request.Context(), p["phone"])
	if err != nil {
		respondMigu(c, err)
		return
	}
	if !free {
		util.RespondWithAPIError(c, errors.AlreadyExists("phone"))
		return
	}
	util.RespondOK(c, gin.H{})
}

// MiguVerifyUpgrade answers ALREADY_EXISTS when the caller already holds a Migu pass
// GET|POST /migu/verify_upgrade
func (h *Handlers) MiguVerifyUpgrade(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if user.Phone == "" {
		util.RespondInvalidArguments(c, "phone", "account has no phone")
		return
	}
	passID, err := h.center.UserInfo(c.Request.Context(), user.Phone, migu.KeyPassID)
	if err != nil {
		respondMigu(c, err)
		return
	}
	if passID != "" {
		util.RespondWithAPIError(c, errors.AlreadyExists("migu pass"))
		return
	}
	util.RespondOK(c, gin.H{})
}

// MiguSMSCode sends an SMS code for action (reg, reset or up)
// GET|POST /migu/sms_code
func (h *Handlers) MiguSMSCode(c *gin.Context) {
	p, ok := required(c, "phone")
	if !ok {
		return
	}
	phone, action := p["phone"], param(c, "action")

	ctx := c.Request.Context()
	free, err := h.center.CheckAccount(ctx, phone)
	if err != nil {
		respondMigu(c, err)
		return
	}
	if action == migu.ActionRegister && !free {
		util.RespondWithAPIError(c, errors.AlreadyExists("phone"))
		return
	}
	sessionID, err := h.center.SendSMSCode(ctx, phone, action)
	if err != nil {
		respondMigu(c, err)
		return
	}
	util.RespondOK(c, gin.H{"sessionid": sessionID})
}

// MiguUpgrade upgrades the caller to a Migu pass
// GET|POST /migu/upgrade
func (h *Handlers) MiguUpgrade(c *gin.Context) {
	p, ok := required(c, "phone", "password", "code", "sessionid")
	if !ok {
		return
	}
	if err := h.center.ServiceUpgrade(c.Request.Context(), p["phone"], p["password"], p["code"], p["sessionid"]); err != nil {
		respondMigu(c, err)
		return
	}
	util.RespondOK(c, gin.H{})
}

// MiguHFUserID returns the caller's Migu "hf" user id
// GET|POST /migu/hf-userid
func (h *Handlers) MiguHFUserID(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	hf, err := h.center.UserInfo(c.Request.Context(), user.Phone, migu.KeyHFUserID)
	if err != nil {
		respondMigu(c, err)
		return
	}
	util.RespondOK(c, gin.H{"hf_userid": hf})
}

// PhoneProvince returns where a phone number is registered. The answer is
// cached on the account holding the phone.
// GET /migu/phone/province
func (h *Handlers) PhoneProvince(c *gin.Context) {
	p, ok := required(c, "phone")
	if !ok {
		return
	}
	phone := p["phone"]

	ctx := c.Request.Context()
	user, err := h.users.GetByPhone(ctx, phone)
	if err != nil && !stderrors.Is(err, repository.ErrUserNotFound) {
		util.RespondInternalError(c, "Failed to fetch user")
		return
	}
	if user != nil && user.Province != "" {
		util.RespondOK(c, gin.H{"province": user.Province})
		return
	}

	province, err := h.center.UserInfo(ctx, phone, migu.KeyProvince)
	if err != nil {
		respondMigu(c, err)
		return
	}
	if user != nil && province != "" {
		if err := h.users.UpdateProvince(ctx, user.ID, province); err != nil {
			logger.Log.Warn("Failed to store province", logger.WithUserID(user.ID), zap.Error(err))
		}
	}
	util.RespondOK(c, gin.H{"province": province})
}
