package migu

import "context"

// Balance is a user's Migu coin balance.
type Balance struct {
	Total     int64 `json:"miguTotalCount"`
	Money     int64 `json:"miguMoneyCount"`
	Marketing int64 `json:"miguMarketingCount"`
}

// VIPState is the subscription state of one VIP level.
type VIPState struct {
	Subscribed bool `json:"subscribed"`
	CanSub     bool `json:"can_sub"`
}

// VIPStatus covers the two game VIP packages.
type VIPStatus struct {
	VIP5  VIPState `json:"vip5"`
	VIP10 VIPState `json:"vip10"`
}

// DefaultVIP is what anonymous users and users without a phone see.
func DefaultVIP() VIPStatus {
	return VIPStatus{
		VIP5:  VIPState{CanSub: true},
		VIP10: VIPState{CanSub: true},
	}
}

// RecordQuery selects a page of pay records. Times use the yyyymmddHHMMSS layout.
type RecordQuery struct {
	PassID    string
	QueryType string // 1: recharge, 2: payment; unused for present records
	StartAt   string
	EndAt     string
	Page      int
	Size      int
}

// Records is one page of pay records as served to clients.
type Records struct {
	Records []map[string]any `json:"records"`
	EndPage bool             `json:"end_page"`
}

// Pay is the Migu pay center.
type Pay interface {
	BalanceAvailable(ctx context.Context, passID string) (Balance, error)
	VIPLevel(ctx context.Context, phone string) (VIPStatus, error)
	VIPUnsubscribe(ctx context.Context, phone string) (bool, error)
	MoneyRecords(ctx context.Context, q RecordQuery) (*Records, error)
	PresentRecords(ctx context.Context, q RecordQuery) (*Records, error)
}

func (c *Client) BalanceAvailable(ctx context.Context, passID string) (Balance, error) {
	var out Balance
	err := c.pay.call(ctx, "balance", "/balance/available", map[string]any{
		"passId": passID,
	}, &out)
	return out, err
}

func (c *Client) VIPLevel(ctx context.Context, phone string) (VIPStatus, error) {
	type level struct {
		Subscribed bool `json:"subscribed"`
		CanSub     bool `json:"canSub"`
	}
	var out struct {
		VIP5  level `json:"vip5"`
		VIP10 level `json:"vip10"`
	}
	if err := c.pay.call(ctx, "vip_level", "/vip/level", map[string]any{
		"msisdn": phone,
	}, &out); err != nil {
		return VIPStatus{}, err
	}
	return VIPStatus{
		VIP5:  VIPState{Subscribed: out.VIP5.Subscribed, CanSub: out.VIP5.CanSub},
		VIP10: VIPState{Subscribed: out.VIP10.Subscribed, CanSub: out.VIP10.CanSub},
	}, nil
}

func (c *Client) VIPUnsubscribe(ctx context.Context, phone string) (bool, error) {
	var out struct {
		Result bool `json:"result"`
	}
	err := c.pay.call(ctx, "vip_unsubscribe", "/vip/unsubscribe", map[string]any{
		"msisdn": phone,
	}, &out)
	return out.Result, err
}

func (c *Client) MoneyRecords(ctx context.Context, q RecordQuery) (*Records, error) {
	return c.records(ctx, "money_record", "/record/money", q, map[string]any{
		"queryType": q.QueryType,
	})
}

func (c *Client) PresentRecords(ctx context.Context, q RecordQuery) (*Records, error) {
	return c.records(ctx, "present_record", "/record/present", q, nil)
}

func (c *Client) records(ctx context.Context, operation, path string, q RecordQuery, extra map[string]any) (*Records, error) {
	body := map[string]any{
		"passId":    q.PassID,
		"startTime": q.StartAt,
		"endTime":   q.EndAt,
		"pageNo":    q.Page,
		"pageSize":  q.Size,
	}
	for k, v := range extra {
		body[k] = v
	}
	var out struct {
		Records    []map[string]any `json:"records"`
		TotalCount int              `json:"totalCount"`
	}
	if err := c.pay.call(ctx, operation, path, body, &out); err != nil {
		return nil, err
	}
	records := out.Records
	if records == nil {
		records = []map[string]any{}
	}
	return &Records{
		Records: records,
		EndPage: q.Page*q.Size >= out.TotalCount,
	}, nil
}
