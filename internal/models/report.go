package models

import "gorm.io/gorm"

// ReportSource says what kind of object a report targets.
type ReportSource int

const (
	ReportFromVideo ReportSource = iota
	ReportFromLive
	ReportFromComment
	ReportFromReply
)

// Valid reports whether s is a known source
func (s ReportSource) Valid() bool {
	return s >= ReportFromVideo && s <= ReportFromReply
}

// ReportVideo is one user's report against a video, live room, comment or reply.
type ReportVideo struct {
	ID       string       `gorm:"primaryKey;size:36"`
	UID      string       `gorm:"column:uid;size:36;index"` // owner of the reported object
	Target   string       `gorm:"size:64;uniqueIndex:idx_report_once,priority:1"`
	Source   ReportSource `gorm:"uniqueIndex:idx_report_once,priority:2"`
	Reporter string       `gorm:"size:36;uniqueIndex:idx_report_once,priority:3"`
	Type     int
	Content  string `gorm:"type:text"`
	Status   int    `gorm:"default:0"`
	Deleted  bool   `gorm:"default:false"`
	CreateAt float64
}

func (r *ReportVideo) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	if r.CreateAt == 0 {
		r.CreateAt = Timestamp()
	}
	return nil
}

// ReportConfig sets, per source, how many reports trigger an SMS alert and to which group.
type ReportConfig struct {
	ID       string       `gorm:"primaryKey;size:36"`
	Source   ReportSource `gorm:"uniqueIndex"`
	MaxLimit int
	Group    string `gorm:"column:sms_group"`
}

func (r *ReportConfig) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
