package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleSlots обрабатывает /slots <doctor> <date>
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	raw, ok := commandArgs(update.Message.Text, "/slots")
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args, err := parseSlotsArgs(raw)
	if err != nil {
		h.sendError(ctx, b, chatID, "ℹ️ Формат: /slots <id врача> <ГГГГ-ММ-ДД>")
		return
	}

	slots, err := h.availabilityService.FreeSlots(ctx, args.DoctorID, args.Date)
	if err != nil {
		h.logger.Warn("Failed to get free slots", zap.String("doctor_id", args.DoctorID.String()), zap.Error(err))
		h.sendError(ctx, b, chatID, errorText(err))
		return
	}

	h.sendMessage(ctx, b, chatID, FormatSlots(args.Date, slots))
}

// HandleBook обрабатывает /book <doctor> <date> <time>
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	raw, ok := commandArgs(update.Message.Text, "/book")
	if !ok {
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args, err := parseBookArgs(raw)
	if err != nil {
		h.sendError(ctx, b, chatID, "ℹ️ Формат: /book <id врача> <ГГГГ-ММ-ДД> <ЧЧ:ММ>")
		return
	}

	appt, err := h.bookingService.Book(ctx, service.BookRequest{
		UserID:   user.ID,
		DoctorID: args.DoctorID,
		Date:     args.Date,
		Time:     args.Time,
	})
	if err != nil {
		h.sendError(ctx, b, chatID, errorText(err))
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Вы записаны!\n\n%s\n\nОплатить: /pay %s",
		FormatAppointment(appt),
		appt.ID,
	))
}

// HandleMyBookings обрабатывает /mybookings
func (h *Handlers) HandleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	appts, err := h.bookingService.ListForUser(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list appointments", zap.String("user_id", user.ID.String()), zap.Error(err))
		h.sendError(ctx, b, chatID, errorText(err))
		return
	}

	if len(appts) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 У вас пока нет записей.\n\nСвободное время врача: /slots")
		return
	}

	parts := make([]string, 0, len(appts))
	for _, appt := range appts {
		parts = append(parts, FormatAppointment(appt))
	}
	h.sendMessage(ctx, b, chatID, "📅 Ваши записи:\n\n"+strings.Join(parts, "\n\n"))
}

// HandleCancel обрабатывает /cancel <id>
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	raw, ok := commandArgs(update.Message.Text, "/cancel")
	if !ok {
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseAppointmentID(raw)
	if err != nil {
		h.sendError(ctx, b, chatID, "ℹ️ Формат: /cancel <id записи>\n\nСписок записей: /mybookings")
		return
	}

	if err := h.cancellationService.Cancel(ctx, requesterOf(user), id); err != nil {
		h.sendError(ctx, b, chatID, errorText(err))
		return
	}

	h.sendMessage(ctx, b, chatID, "✅ Запись отменена.")
}

// HandlePay обрабатывает /pay <id> [gateway]
func (h *Handlers) HandlePay(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	raw, ok := commandArgs(update.Message.Text, "/pay")
	if !ok {
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args, err := parsePayArgs(raw)
	if err != nil {
		h.sendError(ctx, b, chatID, "ℹ️ Формат: /pay <id записи> [razorpay|stripe]")
		return
	}

	// Оплатить можно только свою запись
	if _, err := h.bookingService.Get(ctx, requesterOf(user), args.AppointmentID); err != nil {
		h.sendError(ctx, b, chatID, errorText(err))
		return
	}

	order, err := h.paymentService.CreateOrder(ctx, args.AppointmentID, args.Gateway)
	if err != nil {
		h.sendError(ctx, b, chatID, errorText(err))
		return
	}

	text := fmt.Sprintf("💳 Заказ %s создан (%s).", order.OrderID, order.Gateway)
	if order.CheckoutURL != "" {
		text += "\n\nОплатить: " + order.CheckoutURL
	}
	h.sendMessage(ctx, b, chatID, text)
}
