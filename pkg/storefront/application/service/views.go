package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	cartmodel "storefront/pkg/cart/domain/model"
	checkoutmodel "storefront/pkg/checkout/domain/model"
	session "storefront/pkg/session/domain/model"
	storefront "storefront/pkg/storefront/domain/model"
)

// reply sends a message through the messenger and records its handle in
// the session history so a lifecycle close can delete it later.
func (b *Bot) reply(sess *session.Session, text string, keyboard storefront.Keyboard) {
	handle, err := b.messenger.Notify(sess.ID, text, keyboard)
	if err != nil {
		log.WithError(err).WithField("sessionID", sess.ID).Warn("failed to deliver a reply")
		return
	}
	sess.RecordMessage(handle)
}

func (b *Bot) replyFailure(sess *session.Session, err error) {
	log.WithError(err).WithField("sessionID", sess.ID).Error("operation failed")
	b.reply(sess, "Something went wrong. Please try again.", nil)
}

func (b *Bot) replyDenied(sess *session.Session) {
	b.reply(sess, "You do not have permission to perform this action.", nil)
}

func (b *Bot) replyRosterError(sess *session.Session, err error) {
	if errors.Is(err, storefront.ErrNotAdmin) {
		b.replyDenied(sess)
		return
	}
	b.replyFailure(sess, err)
}

func (b *Bot) mainMenu(sessionID string) storefront.Keyboard {
	keyboard := storefront.Keyboard{
		{{Label: "Price list", Token: tokenPriceText}, {Label: "Buy", Token: tokenBackToCategories}},
		{{Label: "Cart", Token: tokenGoToCart}},
	}
	if b.roster.IsSuperAdmin(sessionID) {
		keyboard = append(keyboard, []storefront.Button{{Label: "Admin panel", Token: tokenAdminPanel}})
	}
	return keyboard
}

func (b *Bot) showCategories(sess *session.Session) {
	categories, err := b.ledger.Categories()
	if err != nil {
		b.replyFailure(sess, err)
		return
	}
	if len(categories) == 0 {
		b.reply(sess, "No products available.", b.mainMenu(sess.ID))
		return
	}

	var keyboard storefront.Keyboard
	for _, category := range categories {
		keyboard = append(keyboard, []storefront.Button{{
			Label: category,
			Token: tokenCategoryPrefix + category,
		}})
	}
	b.reply(sess, "Choose a category:", keyboard)
}

func (b *Bot) showProducts(sess *session.Session, category string) {
	products, err := b.ledger.ProductsByCategory(category)
	if err != nil {
		b.replyFailure(sess, err)
		return
	}

	var keyboard storefront.Keyboard
	for _, p := range products {
		keyboard = append(keyboard, []storefront.Button{{
			Label: fmt.Sprintf("%s - %s", p.Name, checkoutmodel.FormatPrice(p.PriceCents)),
			Token: fmt.Sprintf("%s%d", tokenProductPrefix, p.ID),
		}})
	}
	keyboard = append(keyboard, []storefront.Button{{Label: "Back", Token: tokenBackToCategories}})
	b.reply(sess, fmt.Sprintf("Products in category '%s':", category), keyboard)
}

func (b *Bot) showCart(sess *session.Session) {
	if sess.Cart.IsEmpty() {
		b.reply(sess, "Your cart is empty.", b.mainMenu(sess.ID))
		return
	}

	var msg strings.Builder
	msg.WriteString("Your cart:\n")
	for _, item := range sortedItems(sess.Cart) {
		subtotal := item.Product.PriceCents * int64(item.Quantity)
		fmt.Fprintf(&msg, "- %s x%d pcs. - %s\n", item.Product.Name, item.Quantity, checkoutmodel.FormatPrice(subtotal))
	}
	fmt.Fprintf(&msg, "Total: %s", checkoutmodel.FormatPrice(b.carts.Total(sess.Cart)))

	b.reply(sess, msg.String(), storefront.Keyboard{
		{{Label: "Edit cart", Token: tokenEditCart}},
		{{Label: "Checkout", Token: tokenCheckout}},
		{{Label: "Back", Token: tokenContinue}},
	})
}

func (b *Bot) showCartActions(sess *session.Session) {
	b.reply(sess, "Choose a cart action:", storefront.Keyboard{
		{{Label: "Change quantity", Token: tokenChangeQuantity}},
		{{Label: "Clear cart", Token: tokenClearCart}},
		{{Label: "Back", Token: tokenBackToCart}},
	})
}

func (b *Bot) showPriceListFormats(sess *session.Session) {
	b.reply(sess, "Choose a format:", storefront.Keyboard{
		{{Label: "Text", Token: tokenPriceText}},
		{{Label: "File", Token: tokenPriceFile}},
	})
}

func (b *Bot) sendPriceListText(sess *session.Session) {
	products, err := b.ledger.Products()
	if err != nil {
		b.replyFailure(sess, err)
		return
	}

	var msg strings.Builder
	msg.WriteString("Price list:\n")
	listed := false
	for _, p := range products {
		if p.Stock <= 0 {
			continue
		}
		fmt.Fprintf(&msg, "%s - %s (stock: %d)\n", p.Name, checkoutmodel.FormatPrice(p.PriceCents), p.Stock)
		listed = true
	}
	if !listed {
		msg.WriteString("No products available.")
	}
	b.reply(sess, msg.String(), nil)
}

func (b *Bot) sendPriceListFile(sess *session.Session) {
	b.reply(sess, "Sending the price list file...", nil)
	if err := b.messenger.SendDocument(sess.ID, b.catalogFile); err != nil {
		log.WithError(err).WithField("sessionID", sess.ID).Warn("failed to send the price list file")
		b.reply(sess, "The price list file could not be sent.", nil)
	}
}

func (b *Bot) showAdminPanel(sess *session.Session) {
	if !b.roster.IsSuperAdmin(sess.ID) {
		b.reply(sess, "You do not have access to this function.", nil)
		return
	}

	lifecycleButton := storefront.Button{Label: "Close storefront", Token: tokenCloseShop}
	if !b.lifecycle.IsOpen() {
		lifecycleButton = storefront.Button{Label: "Open storefront", Token: tokenOpenShop}
	}

	b.reply(sess, "Admin panel:", storefront.Keyboard{
		{{Label: "Add administrator", Token: tokenAddAdmin}},
		{{Label: "Remove administrator", Token: tokenRemoveAdminList}},
		{{Label: "Update catalog", Token: tokenUploadPrice}},
		{lifecycleButton},
	})
}

func sortedItems(cart *cartmodel.Cart) []*cartmodel.Item {
	items := make([]*cartmodel.Item, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Product.ID < items[j].Product.ID
	})
	return items
}
