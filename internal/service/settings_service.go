package service

import (
	"context"
	"strconv"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
)

const (
	keyCheckin          = "autosched_checkin"
	keyMail             = "autosched_mail"
	keyMailSubject      = "autosched_subject"
	keyMailBody         = "autosched_body"
	keySMS              = "autosched_sms"
	keySMSText          = "autosched_sms_text"
	keySelfService      = "autosched_self_service"
	keySelfServiceInfo  = "autosched_self_service_info"
	keySelfServiceOrder = "autosched_self_service_order_info"
)

const (
	DefaultMailSubject = "Your second dose: {scheduled_datetime}"
	DefaultMailBody    = "Hello,\n\n" +
		"we scheduled your second dose for {scheduled_datetime}.\n\n" +
		"Please find additional information in your ticket attached.\n\n" +
		"Best regards,\n" +
		"Your {event} team"
	DefaultSMSText = "Your second dose has been scheduled for {scheduled_datetime}."
)

// Settings are the per-event scheduling settings.
type Settings struct {
	CheckinEnabled       bool   `json:"checkin_enabled"`
	MailEnabled          bool   `json:"mail_enabled"`
	MailSubject          string `json:"mail_subject"`
	MailBody             string `json:"mail_body"`
	SMSEnabled           bool   `json:"sms_enabled"`
	SMSText              string `json:"sms_text"`
	SelfServiceEnabled   bool   `json:"self_service_enabled"`
	SelfServiceInfo      string `json:"self_service_info"`
	SelfServiceOrderInfo string `json:"self_service_order_info"`
}

func DefaultSettings() Settings {
	return Settings{
		CheckinEnabled: true,
		MailSubject:    DefaultMailSubject,
		MailBody:       DefaultMailBody,
		SMSText:        DefaultSMSText,
	}
}

type SettingsService interface {
	Get(ctx context.Context, eventID uint) (*Settings, error)
	Update(ctx context.Context, eventID uint, s *Settings) error
}

type settingsService struct {
	repo   repository.SettingsRepository
	events repository.EventRepository
}

func NewSettingsService(repo repository.SettingsRepository, events repository.EventRepository) SettingsService {
	return &settingsService{repo: repo, events: events}
}

func (s *settingsService) Get(ctx context.Context, eventID uint) (*Settings, error) {
	raw, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := DefaultSettings()
	readBool(raw, keyCheckin, &out.CheckinEnabled)
	readBool(raw, keyMail, &out.MailEnabled)
	readBool(raw, keySMS, &out.SMSEnabled)
	readBool(raw, keySelfService, &out.SelfServiceEnabled)
	readString(raw, keyMailSubject, &out.MailSubject)
	readString(raw, keyMailBody, &out.MailBody)
	readString(raw, keySMSText, &out.SMSText)
	readString(raw, keySelfServiceInfo, &out.SelfServiceInfo)
	readString(raw, keySelfServiceOrder, &out.SelfServiceOrderInfo)
	return &out, nil
}

func (s *settingsService) Update(ctx context.Context, eventID uint, in *Settings) error {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return ErrEventNotFound
	}
	for field, tmpl := range map[string]string{
		"mail_subject": in.MailSubject,
		"mail_body":    in.MailBody,
		"sms_text":     in.SMSText,
	} {
		if err := ValidatePlaceholders(field, tmpl); err != nil {
			return err
		}
	}

	return s.repo.Set(ctx, eventID, map[string]string{
		keyCheckin:          strconv.FormatBool(in.CheckinEnabled),
		keyMail:             strconv.FormatBool(in.MailEnabled),
		keyMailSubject:      in.MailSubject,
		keyMailBody:         in.MailBody,
		keySMS:              strconv.FormatBool(in.SMSEnabled),
		keySMSText:          in.SMSText,
		keySelfService:      strconv.FormatBool(in.SelfServiceEnabled),
		keySelfServiceInfo:  in.SelfServiceInfo,
		keySelfServiceOrder: in.SelfServiceOrderInfo,
	})
}

func readBool(raw map[string]string, key string, dst *bool) {
	if v, ok := raw[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func readString(raw map[string]string, key string, dst *string) {
	if v, ok := raw[key]; ok && v != "" {
		*dst = v
	}
}
