package models

import (
	"strings"
	"time"
)

type Waiver struct {
	BaseModel
	FirstName             string  `gorm:"type:varchar(255);not null"   json:"firstName"`
	LastName              string  `gorm:"type:varchar(255);not null"   json:"lastName"`
	Email                 string  `gorm:"type:varchar(255);not null"   json:"email"`
	YearOfBirth           string  `gorm:"type:varchar(16);not null"    json:"yearOfBirth"`
	Phone                 *string `gorm:"type:varchar(64)"             json:"phone,omitempty"`
	EmergencyContactPhone string  `gorm:"type:varchar(64);not null"    json:"emergencyContactPhone"`
	SafetyRulesInitial    string  `gorm:"type:varchar(16);not null"    json:"safetyRulesInitial"`
	MedicalConsentInitial string  `gorm:"type:varchar(16);not null"    json:"medicalConsentInitial"`
	PhotoRelease          bool    `gorm:"not null;default:false"       json:"photoRelease"`
	MinorNames            *string `gorm:"type:text"                    json:"minorNames,omitempty"`
	Signature             string  `gorm:"type:text;not null"           json:"signature"`
	SignatureDate         string  `gorm:"type:varchar(64);not null"    json:"signatureDate"` // RFC 3339, may be malformed on imported rows
	IPAddress             *string `gorm:"type:varchar(255)"            json:"ipAddress,omitempty"`
	UserAgent             *string `gorm:"type:text"                    json:"userAgent,omitempty"`
	WaiverYear            int     `gorm:"not null;index"               json:"waiverYear"`
}

type SubmitWaiverRequest struct {
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName"`
	Email                 string `json:"email"`
	YearOfBirth           string `json:"yearOfBirth"`
	Phone                 string `json:"phone"`
	EmergencyContactPhone string `json:"emergencyContactPhone"`
	SafetyRulesInitial    string `json:"safetyRulesInitial"`
	MedicalConsentInitial string `json:"medicalConsentInitial"`
	PhotoRelease          bool   `json:"photoRelease"`
	MinorNames            string `json:"minorNames"`
	Signature             string `json:"signature"`
}

// MissingFields lists the required fields left blank, in form order.
func (r SubmitWaiverRequest) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", r.FirstName},
		{"lastName", r.LastName},
		{"email", r.Email},
		{"yearOfBirth", r.YearOfBirth},
		{"emergencyContactPhone", r.EmergencyContactPhone},
		{"safetyRulesInitial", r.SafetyRulesInitial},
		{"medicalConsentInitial", r.MedicalConsentInitial},
		{"signature", r.Signature},
	}

	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// ToWaiver stamps the signing time and waiver year from signedAt.
func (r SubmitWaiverRequest) ToWaiver(signedAt time.Time, ipAddress, userAgent string) *Waiver {
	return &Waiver{
		FirstName:             strings.TrimSpace(r.FirstName),
		LastName:              strings.TrimSpace(r.LastName),
		Email:                 strings.TrimSpace(r.Email),
		YearOfBirth:           strings.TrimSpace(r.YearOfBirth),
		Phone:                 optional(r.Phone),
		EmergencyContactPhone: strings.TrimSpace(r.EmergencyContactPhone),
		SafetyRulesInitial:    strings.TrimSpace(r.SafetyRulesInitial),
		MedicalConsentInitial: strings.TrimSpace(r.MedicalConsentInitial),
		PhotoRelease:          r.PhotoRelease,
		MinorNames:            optional(r.MinorNames),
		Signature:             r.Signature,
		SignatureDate:         signedAt.UTC().Format(time.RFC3339Nano),
		IPAddress:             optional(ipAddress),
		UserAgent:             optional(userAgent),
		WaiverYear:            signedAt.Year(),
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
