package domain

import "time"

// TrackingEvent один зафиксированный переход по ссылке
type TrackingEvent struct {
	ID         int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID     int64     `gorm:"column:utm_link_id;not null;index" json:"utmLinkId"`
	Code       string    `gorm:"column:code;size:50;not null;index" json:"code"` // денормализован для запросов
	IPAddress  *string   `gorm:"column:ip_address;size:45" json:"ipAddress"`
	UserAgent  *string   `gorm:"column:user_agent;type:text" json:"userAgent"`
	Referer    *string   `gorm:"column:referer;size:500" json:"referer"`
	Country    *string   `gorm:"column:country;size:2" json:"country"` // ISO код страны
	City       *string   `gorm:"column:city;size:255" json:"city"`
	GeoData    GeoData   `gorm:"column:geodata" json:"geodata"`
	DeviceType *string   `gorm:"column:device_type;size:50" json:"deviceType"` // 'desktop', 'mobile', 'tablet'
	Browser    *string   `gorm:"column:browser;size:100" json:"browser"`
	OS         *string   `gorm:"column:os;size:100" json:"os"`
	ClickedAt  time.Time `gorm:"column:clicked_at;not null;index" json:"clickedAt"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName возвращает название таблицы для GORM
func (TrackingEvent) TableName() string {
	return "utm_tracking"
}
