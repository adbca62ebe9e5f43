package dialogue

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/room4-2/OpenOrder/menu"
	"github.com/room4-2/OpenOrder/order"
)

const (
	replyCancelled     = "Order cancelled. Would you like to order something else?"
	replyNoPending     = "You don't have any pending order to confirm."
	replyAskTicketID   = "Could you give me your ticket ID? (for example 7D06BF25)"
	replyFarewell      = "See you soon! Enjoy your meal."
	replyPraise        = "Thank you! We'll pass it on to the kitchen."
	replyComplaint     = "Thanks for letting us know, we'll look into it right away."
	replySaveFailed    = "Sorry, I couldn't send your order to the kitchen. It is still pending, reply 'yes' to try again."
	replyLookupFailed  = "Sorry, I can't check tickets right now. Please try again in a moment."
	replyApology       = "Sorry, something went wrong on our side. Please try again."
	replyTimeout       = "Sorry, that took too long. Please try again."
	confirmationPrompt = "Is that correct? Reply 'yes' to confirm or 'no' to cancel."
)

func proposalReply(lines []order.OrderLine, c *menu.Catalog) string {
	var b strings.Builder
	b.WriteString("Here is what I got:\n")
	total := decimal.Zero
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %dx %s", i+1, l.Quantity, l.Product)
		if l.HasNote() {
			fmt.Fprintf(&b, " (%s)", l.Note)
		}
		b.WriteString("\n")
		total = total.Add(c.PriceOf(l.Product).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if total.IsPositive() {
		fmt.Fprintf(&b, "Total: %s\n", total.StringFixed(2))
	}
	b.WriteString(confirmationPrompt)
	return b.String()
}

func confirmedReply(t *order.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sent! Your ticket is %s.\n", t.ID)
	for _, l := range t.Lines {
		fmt.Fprintf(&b, "- %dx %s\n", l.Quantity, l.Product)
	}
	if total := t.Total(); total.IsPositive() {
		fmt.Fprintf(&b, "Total: %s\n", total.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusReply(t *order.Ticket) string {
	items := make([]string, len(t.Lines))
	for i, l := range t.Lines {
		items[i] = fmt.Sprintf("%dx %s", l.Quantity, l.Product)
	}
	return fmt.Sprintf("Ticket %s: %s\nContains: %s", t.ID, strings.ToUpper(string(t.Status)), strings.Join(items, ", "))
}

func notFoundReply(id string) string {
	return fmt.Sprintf("Ticket %s not found.", id)
}

func greetingReply(c *menu.Catalog) string {
	reply := "Hi! I'm the ordering assistant. What would you like to order?"
	if names := menuList(c); names != "" {
		reply += "\nToday's menu: " + names + "."
	}
	return reply
}

func clarificationReply(c *menu.Catalog) string {
	reply := "Sorry, I didn't catch any item from the menu. Try something like '2 pizzas and a soda'."
	if names := menuList(c); names != "" {
		reply += "\nWe have: " + names + "."
	}
	return reply
}

func menuList(c *menu.Catalog) string {
	items := c.Items()
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return strings.Join(names, ", ")
}
