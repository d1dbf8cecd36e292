package jobs

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/mailer"
	"github.com/prefvista/fiscal-api/internal/service"
	"github.com/prefvista/fiscal-api/internal/triage"
)

// DigestJobName is the name of the daily due-date digest job
const DigestJobName = "due_date_digest"

// DigestJob mails the daily due-date digest to the configured recipients.
// It runs on the same grouping as the reminder panel, so the e-mail and
// the portal can never disagree about what is due.
type DigestJob struct {
	reminderService *service.ReminderService
	mailer          *mailer.Mailer
	recipients      []string
	logger          *zap.Logger
	timeout         time.Duration
}

// NewDigestJob creates a new digest job.
func NewDigestJob(
	reminderService *service.ReminderService,
	m *mailer.Mailer,
	recipients []string,
	logger *zap.Logger,
	timeout time.Duration,
) *DigestJob {
	return &DigestJob{
		reminderService: reminderService,
		mailer:          m,
		recipients:      recipients,
		logger:          logger,
		timeout:         timeout,
	}
}

// Run executes the digest job. Nothing is sent when no invoice needs
// attention.
func (j *DigestJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	now := time.Now()
	groups, err := j.reminderService.GroupsForDigest(ctx, now)
	if err != nil {
		j.logger.Error("digest job failed to load reminder groups", zap.Error(err))
		return
	}

	if groups.PendingCount() == 0 {
		j.logger.Info("digest job found nothing pending, no email sent")
		return
	}

	subject := fmt.Sprintf("Notas fiscais a vencer - %s", now.Format("02/01/2006"))
	body := buildDigestBody(groups, now)

	if err := j.mailer.Send(subject, body, j.recipients); err != nil {
		j.logger.Error("digest job failed to send email", zap.Error(err))
		return
	}

	j.logger.Info("digest email sent",
		zap.Int("urgent", len(groups.Urgent)),
		zap.Int("warning", len(groups.Warning)),
		zap.Int("planning", len(groups.Planning)),
		zap.Int("recipients", len(j.recipients)),
	)
}

// buildDigestBody renders the digest as a simple HTML table per group
func buildDigestBody(groups triage.Groups, now time.Time) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(fmt.Sprintf("<h2>Notas fiscais a vencer em %s</h2>", now.Format("02/01/2006")))

	writeDigestSection(&b, "Urgente (vencidas ou vencendo em até 3 dias)", groups.Urgent, now)
	writeDigestSection(&b, "Aviso (vencendo em 5 dias)", groups.Warning, now)
	writeDigestSection(&b, "Planejamento (vencendo em 15 dias)", groups.Planning, now)

	b.WriteString("</body></html>")
	return b.String()
}

func writeDigestSection(b *strings.Builder, title string, invoices []domain.Invoice, now time.Time) {
	if len(invoices) == 0 {
		return
	}

	b.WriteString(fmt.Sprintf("<h3>%s</h3>", html.EscapeString(title)))
	b.WriteString("<table border=\"1\" cellpadding=\"4\" cellspacing=\"0\">")
	b.WriteString("<tr><th>Fornecedor</th><th>Nota</th><th>Unidade</th><th>Valor</th><th>Vencimento</th><th>Dias</th></tr>")

	for _, inv := range invoices {
		days := triage.DaysUntilDue(inv.DueDate, now)
		b.WriteString(fmt.Sprintf(
			"<tr><td>%s</td><td>%s</td><td>%s</td><td>R$ %s</td><td>%s</td><td>%d</td></tr>",
			html.EscapeString(inv.SupplierName),
			html.EscapeString(inv.InvoiceNumber),
			html.EscapeString(inv.BudgetUnit),
			inv.Amount.StringFixed(2),
			inv.DueDate.Format("02/01/2006"),
			days,
		))
	}

	b.WriteString("</table>")
}
