package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Alert - ограниченное по времени региональное оповещение. Пустой Region означает глобальное.
type Alert struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
	Region      string     `json:"region,omitempty"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (a *Alert) ActiveAt(now time.Time) bool {
	return a.IsActive && (a.ExpiresAt == nil || a.ExpiresAt.After(now))
}

// MatchesRegion: глобальное оповещение подходит любому региону, региональное
// только совпадающему без учёта регистра и крайних пробелов.
func (a *Alert) MatchesRegion(region string) bool {
	alertRegion := strings.TrimSpace(a.Region)
	if alertRegion == "" {
		return true
	}
	return strings.EqualFold(alertRegion, strings.TrimSpace(region))
}
