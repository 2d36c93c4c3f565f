package service

import (
	"context"
	"fmt"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// AppointmentMailer notifies the doctor and the patient about a committed
// appointment. Delivery is best-effort: it runs after the commit and a
// failed send never rolls the appointment back.
type AppointmentMailer interface {
	SendAppointmentEmail(ctx context.Context, appointment *entity.Appointment, doctor *entity.Doctor, patient *entity.Patient) error
}

// SendGridMailer sends appointment notifications via the SendGrid API,
// one message to the doctor and one to the patient.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       *logrus.Logger
}

func NewSendGridMailer(apiKey, fromEmail, fromName string, log *logrus.Logger) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		log:       log,
	}
}

func (m *SendGridMailer) SendAppointmentEmail(ctx context.Context, appointment *entity.Appointment, doctor *entity.Doctor, patient *entity.Patient) error {
	slot := fmt.Sprintf("on %s from %s to %s",
		appointment.AppointmentDate.Format("2006-01-02"), appointment.StartTime, appointment.EndTime)

	if err := m.send(ctx, doctor.Name, doctor.Email,
		fmt.Sprintf("New appointment scheduled with %s %s", patient.Name, slot)); err != nil {
		return err
	}
	return m.send(ctx, patient.Name, patient.Email,
		fmt.Sprintf("New appointment scheduled with %s %s", doctor.Name, slot))
}

func (m *SendGridMailer) send(ctx context.Context, toName, toEmail, body string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, "Scheduled Appointment", to, body, body)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", toEmail, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d for %s", resp.StatusCode, toEmail)
	}

	m.log.Infof("Appointment email sent to %s", toEmail)
	return nil
}

// LogMailer is used when no SendGrid API key is configured. It only logs
// what would have been sent.
type LogMailer struct {
	log *logrus.Logger
}

func NewLogMailer(log *logrus.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendAppointmentEmail(_ context.Context, appointment *entity.Appointment, doctor *entity.Doctor, patient *entity.Patient) error {
	m.log.Infof("Mail disabled, skipping appointment notification: doctor=%s patient=%s date=%s %s-%s",
		doctor.Email, patient.Email,
		appointment.AppointmentDate.Format("2006-01-02"), appointment.StartTime, appointment.EndTime)
	return nil
}
