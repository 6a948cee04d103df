package notification

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"wayantrails/internal/domain"
)

const humanDate = "02 Jan 2006"

// FallbackName is the display name used when the listing cannot be resolved.
func FallbackName(contentType string) string {
	switch contentType {
	case "resort":
		return "Resort"
	case "homestay":
		return "Homestay"
	case "rental":
		return "Rental"
	case "destination":
		return "Destination"
	default:
		return "Service"
	}
}

// ChatLink builds a wa.me click-to-chat URL with the message prefilled.
func ChatLink(phone, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", phone, url.QueryEscape(message))
}

// InquiryMessage is the guest-to-business text sent right after a booking is
// placed, asking the team to confirm and send a payment link.
func InquiryMessage(b *domain.Booking, itemName string) string {
	parts := []string{
		"Hi WayanTrails Team!",
		"",
		"I would like to book:",
		fmt.Sprintf("🏨 *%s*", itemName),
		"",
	}

	if b.BookingType.IsAccommodation() && b.CheckInDate != nil && b.CheckOutDate != nil {
		parts = append(parts,
			fmt.Sprintf("📅 Check-in: %s", b.CheckInDate.Format(humanDate)),
			fmt.Sprintf("📅 Check-out: %s", b.CheckOutDate.Format(humanDate)),
			fmt.Sprintf("🌙 Duration: %d nights", b.DurationNights()),
			"",
		)
	}
	if b.BookingDate != nil {
		parts = append(parts, fmt.Sprintf("📅 Date: %s", b.BookingDate.Format(humanDate)))
		if b.BookingTime != "" {
			parts = append(parts, fmt.Sprintf("🕐 Time: %s", b.BookingTime))
		}
		parts = append(parts, "")
	}

	guests := fmt.Sprintf("👥 Guests: %d Adults", b.Adults)
	if b.Children > 0 {
		guests += fmt.Sprintf(", %d Children", b.Children)
	}
	parts = append(parts,
		guests,
		"",
		fmt.Sprintf("💰 Total Amount: ₹%s", b.TotalAmount.StringFixed(2)),
		"",
		fmt.Sprintf("📝 Booking Reference: #%s", b.BookingNumber),
	)

	if b.SpecialRequests != "" {
		parts = append(parts, "", fmt.Sprintf("Special Requests: %s", b.SpecialRequests))
	}

	parts = append(parts,
		"",
		"Please confirm availability and send payment link.",
		"Thank you!",
	)
	return strings.Join(parts, "\n")
}

// ConfirmationMessage is the business-to-guest text after confirmation.
func ConfirmationMessage(b *domain.Booking, itemName string) string {
	parts := []string{
		fmt.Sprintf("Hi %s!", b.GuestName),
		"",
		fmt.Sprintf("Your booking *%s* at *%s* is confirmed. ✅", b.BookingNumber, itemName),
	}
	if b.BookingType.IsAccommodation() && b.CheckInDate != nil {
		parts = append(parts, fmt.Sprintf("📅 Check-in: %s", b.CheckInDate.Format(humanDate)))
	} else if b.BookingDate != nil {
		parts = append(parts, fmt.Sprintf("📅 Date: %s", b.BookingDate.Format(humanDate)))
	}
	parts = append(parts,
		fmt.Sprintf("💰 Total: ₹%s", b.TotalAmount.StringFixed(2)),
		"",
		"We look forward to hosting you!",
	)
	return strings.Join(parts, "\n")
}

// CancellationMessage tells the guest what the cancellation policy returns.
func CancellationMessage(b *domain.Booking, itemName string, refund decimal.Decimal, pct int) string {
	parts := []string{
		fmt.Sprintf("Hi %s,", b.GuestName),
		"",
		fmt.Sprintf("Your booking *%s* at *%s* has been cancelled.", b.BookingNumber, itemName),
	}
	if pct > 0 {
		parts = append(parts, fmt.Sprintf("💰 Refund: ₹%s (%d%%) will be processed to your original payment method.", refund.StringFixed(2), pct))
	} else {
		parts = append(parts, "As per the cancellation policy, no refund is applicable.")
	}
	parts = append(parts, "", "We hope to see you another time!")
	return strings.Join(parts, "\n")
}

// PaymentLinkMessage carries the gateway payment link to the guest.
func PaymentLinkMessage(b *domain.Booking, itemName, link string) string {
	return strings.Join([]string{
		fmt.Sprintf("Hi %s!", b.GuestName),
		"",
		fmt.Sprintf("Here is the payment link for your booking *%s* at *%s*:", b.BookingNumber, itemName),
		link,
		"",
		fmt.Sprintf("💰 Amount: ₹%s", b.TotalAmount.StringFixed(2)),
		"The link expires in 24 hours.",
	}, "\n")
}
