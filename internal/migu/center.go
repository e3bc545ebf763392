package migu

import "context"

// Keywords accepted by Center.UserInfo.
const (
	KeyProvince = "province"
	KeyPassID   = "passID"
	KeyHFUserID = "hfUserID"
)

// accountTypePhone marks the account name as a phone number.
const accountTypePhone = "phone"

// SMS actions.
const (
	ActionRegister = "reg"
	ActionReset    = "reset"
	ActionUpgrade  = "up"
)

// Center is the Migu user center: accounts, passwords and SMS codes.
type Center interface {
	// CheckAccount reports whether phone is still free to register.
	CheckAccount(ctx context.Context, phone string) (bool, error)
	SendSMSCode(ctx context.Context, phone, action string) (sessionID string, err error)
	Register(ctx context.Context, phone, password, code, sessionID string) error
	// IdentityID authenticates phone/password and returns the Migu open id.
	IdentityID(ctx context.Context, phone, password string) (string, error)
	UpdatePassword(ctx context.Context, identityID, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, phone, password, code, sessionID string) error
	ServiceUpgrade(ctx context.Context, phone, password, code, sessionID string) error
	// UserInfo returns one attribute of the account (see the Key constants).
	// A missing attribute is returned as "".
	UserInfo(ctx context.Context, phone, keyword string) (string, error)
}

func (c *Client) CheckAccount(ctx context.Context, phone string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	err := c.center.call(ctx, "check_account", "/account/check", map[string]any{
		"account":     phone,
		"accountType": accountTypePhone,
	}, &out)
	return out.Available, err
}

func (c *Client) SendSMSCode(ctx context.Context, phone, action string) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	err := c.center.call(ctx, "sms_code", "/sms/send", map[string]any{
		"msisdn": phone,
		"action": action,
	}, &out)
	return out.SessionID, err
}

func (c *Client) Register(ctx context.Context, phone, password, code, sessionID string) error {
	return c.center.call(ctx, "register", "/account/register", map[string]any{
		"account":     phone,
		"accountType": accountTypePhone,
		"password":    password,
		"smsCode":     code,
		"sessionId":   sessionID,
	}, nil)
}

func (c *Client) IdentityID(ctx context.Context, phone, password string) (string, error) {
	var out struct {
		IdentityID string `json:"identityId"`
	}
	err := c.center.call(ctx, "identity", "/account/identity", map[string]any{
		"account":     phone,
		"accountType": accountTypePhone,
		"password":    password,
	}, &out)
	return out.IdentityID, err
}

func (c *Client) UpdatePassword(ctx context.Context, identityID, oldPassword, newPassword string) error {
	return c.center.call(ctx, "update_password", "/account/password/update", map[string]any{
		"identityId":  identityID,
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, phone, password, code, sessionID string) error {
	return c.center.call(ctx, "reset_password", "/account/password/reset", map[string]any{
		"account":     phone,
		"accountType": accountTypePhone,
		"password":    password,
		"smsCode":     code,
		"sessionId":   sessionID,
	}, nil)
}

func (c *Client) ServiceUpgrade(ctx context.Context, phone, password, code, sessionID string) error {
	return c.center.call(ctx, "upgrade", "/account/upgrade", map[string]any{
		"msisdn":    phone,
		"password":  password,
		"smsCode":   code,
		"sessionId": sessionID,
	}, nil)
}

func (c *Client) UserInfo(ctx context.Context, phone, keyword string) (string, error) {
	if keyword == "" {
		keyword = KeyProvince
	}
	var out map[string]string
	err := c.center.call(ctx, "user_info", "/account/info", map[string]any{
		"accountName": phone,
		"keyword":     keyword,
	}, &out)
	if err != nil {
		return "", err
	}
	return out[keyword], nil
}
