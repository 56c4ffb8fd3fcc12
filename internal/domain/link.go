package domain

import "time"

// Link короткий код, указывающий на целевой URL с набором UTM-параметров
type Link struct {
	ID             int64     `gorm:"primaryKey;column:id" json:"id"`
	Code           string    `gorm:"column:code;size:50;not null;uniqueIndex" json:"code"`
	DestinationURL string    `gorm:"column:destination_url;type:text;not null" json:"destinationUrl"`
	UTMSource      string    `gorm:"column:utm_source;size:255;not null" json:"utmSource"`
	UTMMedium      string    `gorm:"column:utm_medium;size:255;not null" json:"utmMedium"`
	UTMCampaign    *string   `gorm:"column:utm_campaign;size:255" json:"utmCampaign"`
	UTMContent     *string   `gorm:"column:utm_content;size:255" json:"utmContent"`
	IsActive       bool      `gorm:"column:is_active;not null" json:"isActive"`
	CreatedBy      *string   `gorm:"column:created_by;size:255" json:"createdBy"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	// Relationships
	TrackingEvents []TrackingEvent `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (Link) TableName() string {
	return "utm_links"
}

// Clone возвращает независимую копию ссылки без связанных событий
func (l *Link) Clone() *Link {
	c := *l
	c.UTMCampaign = cloneString(l.UTMCampaign)
	c.UTMContent = cloneString(l.UTMContent)
	c.CreatedBy = cloneString(l.CreatedBy)
	c.TrackingEvents = nil
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
