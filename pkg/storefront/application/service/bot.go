package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	cartmodel "storefront/pkg/cart/domain/model"
	cartservice "storefront/pkg/cart/domain/service"
	checkoutmodel "storefront/pkg/checkout/domain/model"
	checkoutservice "storefront/pkg/checkout/domain/service"
	inventory "storefront/pkg/inventory/domain/model"
	ledgerservice "storefront/pkg/inventory/domain/service"
	session "storefront/pkg/session/domain/model"
	storefront "storefront/pkg/storefront/domain/model"
	storefrontservice "storefront/pkg/storefront/domain/service"
)

// Commands accepted by OnCommand.
const (
	CommandStart       = "start"
	CommandMenu        = "menu"
	CommandCart        = "cart"
	CommandPriceList   = "pricelist"
	CommandUploadPrice = "upload_price"
)

// Callback tokens carried by inline keyboard buttons.
const (
	tokenCategoryPrefix   = "category_"
	tokenProductPrefix    = "product_"
	tokenChangeItemPrefix = "change_item_"
	tokenRemoveAdmin      = "confirm_remove_admin_"

	tokenChangeQuantity   = "change_quantity"
	tokenClearCart        = "clear_cart"
	tokenBackToCart       = "back_to_cart"
	tokenGoToCart         = "go_to_cart"
	tokenContinue         = "continue_shopping"
	tokenBackToCategories = "back_to_categories"
	tokenEditCart         = "edit_cart"
	tokenCheckout         = "checkout"
	tokenPriceText        = "price_text"
	tokenPriceFile        = "price_file"
	tokenDeliveryPavilion = "delivery_pavilion"
	tokenDeliveryPickup   = "delivery_pickup"
	tokenCloseShop        = "close_shop"
	tokenOpenShop         = "open_shop"
	tokenAddAdmin         = "add_admin"
	tokenRemoveAdminList  = "remove_admin"
	tokenUploadPrice      = "upload_price"
	tokenAdminPanel       = "admin_panel"
)

// catalogMimeType is the only content type accepted for catalog uploads.
const catalogMimeType = "application/json"

// CatalogImporter parses an uploaded catalog document into product rows.
type CatalogImporter interface {
	ParseFile(fileHandle string) ([]inventory.Product, error)
}

// Bot routes inbound chat events to the domain services. It is the session
// state machine of the storefront: one awaiting-input mode per session
// decides what the next free-text message means, and the global open/closed
// switch short-circuits everyone but the super-admin while closed.
type Bot struct {
	registry    *session.Registry
	ledger      ledgerservice.LedgerService
	carts       cartservice.CartService
	checkout    checkoutservice.CheckoutService
	lifecycle   storefrontservice.LifecycleService
	roster      storefrontservice.RosterService
	messenger   storefront.Messenger
	importer    CatalogImporter
	catalogFile string
}

func NewBot(
	registry *session.Registry,
	ledger ledgerservice.LedgerService,
	carts cartservice.CartService,
	checkout checkoutservice.CheckoutService,
	lifecycle storefrontservice.LifecycleService,
	roster storefrontservice.RosterService,
	messenger storefront.Messenger,
	importer CatalogImporter,
	catalogFile string,
) *Bot {
	return &Bot{
		registry:    registry,
		ledger:      ledger,
		carts:       carts,
		checkout:    checkout,
		lifecycle:   lifecycle,
		roster:      roster,
		messenger:   messenger,
		importer:    importer,
		catalogFile: catalogFile,
	}
}

// OnCommand handles a slash command. Any pending input entry is abandoned:
// switching to a command is an implicit cancel with no ledger side effects.
func (b *Bot) OnCommand(sessionID, command string) error {
	sess := b.registry.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	if b.shortCircuitClosed(sess) {
		return nil
	}
	sess.CancelInput()

	switch command {
	case CommandStart:
		b.reply(sess, "Welcome to our electronics store!", b.mainMenu(sess.ID))
	case CommandMenu:
		b.showCategories(sess)
	case CommandCart:
		b.showCart(sess)
	case CommandPriceList:
		b.showPriceListFormats(sess)
	case CommandUploadPrice:
		b.promptCatalogUpload(sess)
	default:
		b.reply(sess, "Please use the buttons.", b.mainMenu(sess.ID))
	}
	return nil
}

// OnText handles a free-text message. The active awaiting-input mode gates
// where it goes; with no mode set it is matched against the main menu.
func (b *Bot) OnText(sessionID, text string) error {
	sess := b.registry.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	if b.shortCircuitClosed(sess) {
		return nil
	}

	switch sess.Mode {
	case session.AwaitingQuantity:
		b.completeAdd(sess, text)
		return nil
	case session.AwaitingQuantityChange:
		b.completeQuantityChange(sess, text)
		return nil
	case session.AwaitingPavilionNumber:
		b.completePavilion(sess, text)
		return nil
	case session.AwaitingNewAdminID:
		b.completeAddAdmin(sess, text)
		return nil
	}

	switch text {
	case "Price list":
		b.showPriceListFormats(sess)
	case "Buy":
		b.showCategories(sess)
	case "Cart":
		b.showCart(sess)
	case "Admin panel":
		b.showAdminPanel(sess)
	default:
		b.reply(sess, "Please use the buttons.", b.mainMenu(sess.ID))
	}
	return nil
}

// OnButton handles an inline keyboard press. A press while an input entry
// is pending is an implicit cancel.
func (b *Bot) OnButton(sessionID, token string) error {
	sess := b.registry.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	if b.shortCircuitClosed(sess) {
		return nil
	}
	sess.CancelInput()

	switch {
	case strings.HasPrefix(token, tokenCategoryPrefix):
		b.showProducts(sess, strings.TrimPrefix(token, tokenCategoryPrefix))
	case strings.HasPrefix(token, tokenProductPrefix):
		b.selectProduct(sess, strings.TrimPrefix(token, tokenProductPrefix))
	case strings.HasPrefix(token, tokenChangeItemPrefix):
		b.selectItemForChange(sess, strings.TrimPrefix(token, tokenChangeItemPrefix))
	case strings.HasPrefix(token, tokenRemoveAdmin):
		b.removeAdmin(sess, strings.TrimPrefix(token, tokenRemoveAdmin))
	case token == tokenChangeQuantity:
		b.showItemsForChange(sess)
	case token == tokenClearCart:
		b.clearCart(sess)
	case token == tokenBackToCart || token == tokenGoToCart:
		b.showCart(sess)
	case token == tokenContinue || token == tokenBackToCategories:
		b.showCategories(sess)
	case token == tokenEditCart:
		b.showCartActions(sess)
	case token == tokenCheckout:
		b.startCheckout(sess)
	case token == tokenDeliveryPavilion:
		b.selectDelivery(sess, session.DeliveryPavilion)
	case token == tokenDeliveryPickup:
		b.selectDelivery(sess, session.DeliveryPickup)
	case token == tokenPriceText:
		b.sendPriceListText(sess)
	case token == tokenPriceFile:
		b.sendPriceListFile(sess)
	case token == tokenCloseShop:
		b.closeStorefront(sess)
	case token == tokenOpenShop:
		b.openStorefront(sess)
	case token == tokenAddAdmin:
		b.promptNewAdmin(sess)
	case token == tokenRemoveAdminList:
		b.showRemovableAdmins(sess)
	case token == tokenUploadPrice:
		b.promptCatalogUpload(sess)
	case token == tokenAdminPanel:
		b.showAdminPanel(sess)
	default:
		b.reply(sess, "Please use the buttons.", nil)
	}
	return nil
}

// OnDocumentUpload handles an uploaded file; only administrators may
// replace the catalog, and only with the expected content type.
func (b *Bot) OnDocumentUpload(sessionID, fileHandle, mimeType string) error {
	sess := b.registry.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()

	if !b.roster.IsAdmin(sess.ID) {
		b.reply(sess, "You do not have permission to upload files.", nil)
		return nil
	}
	if mimeType != catalogMimeType {
		b.reply(sess, "Please send the catalog as a JSON file.", nil)
		return nil
	}

	products, err := b.importer.ParseFile(fileHandle)
	if err != nil {
		log.WithError(err).WithField("sessionID", sess.ID).Warn("catalog upload could not be parsed")
		b.reply(sess, "The uploaded catalog could not be parsed.", nil)
		return nil
	}
	if err := b.ledger.ReplaceCatalog(products); err != nil {
		if errors.Is(err, inventory.ErrInvalidCatalog) {
			b.reply(sess, "The uploaded catalog contains invalid rows.", nil)
			return nil
		}
		log.WithError(err).WithField("sessionID", sess.ID).Error("failed to replace the catalog")
		b.reply(sess, "Something went wrong. Please try again.", nil)
		return nil
	}

	b.reply(sess, "The catalog has been updated.", b.mainMenu(sess.ID))
	return nil
}

// shortCircuitClosed sends the fixed closed notice to everyone but the
// super-admin while the storefront is closed. Mode routing is never
// consulted in that case.
func (b *Bot) shortCircuitClosed(sess *session.Session) bool {
	if b.lifecycle.IsOpen() || b.roster.IsSuperAdmin(sess.ID) {
		return false
	}
	b.reply(sess, "Sales are currently closed, please wait for the start of sales.", nil)
	return true
}

func (b *Bot) selectProduct(sess *session.Session, rawID string) {
	productID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.reply(sess, "Product not found.", nil)
		return
	}
	product, err := b.ledger.Find(productID)
	if err != nil {
		if errors.Is(err, inventory.ErrProductNotFound) {
			b.reply(sess, "Product not found.", nil)
			return
		}
		b.replyFailure(sess, err)
		return
	}

	sess.AwaitQuantity(product.ID)
	b.reply(sess, fmt.Sprintf("Enter the quantity for '%s' (%d pcs. in stock):", product.Name, product.Stock), nil)
}

// completeAdd finishes quantity entry for a selected product. Invalid and
// insufficient inputs keep the mode armed so the user can retry.
func (b *Bot) completeAdd(sess *session.Session, text string) {
	quantity, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || quantity <= 0 {
		b.reply(sess, "Please enter a valid quantity greater than zero.", nil)
		return
	}

	// The awaiting-quantity mode is only ever armed with a selection, so
	// PendingProduct is valid here even when the catalog uses ID zero.
	productID := sess.PendingProduct
	product, err := b.carts.Add(sess.Cart, productID, quantity)
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			b.reply(sess, fmt.Sprintf("Not enough stock. %d pcs. available.", stockErr.Available), nil)
		case errors.Is(err, inventory.ErrProductNotFound):
			sess.CancelInput()
			b.reply(sess, "Product not found.", b.mainMenu(sess.ID))
		default:
			sess.CancelInput()
			b.replyFailure(sess, err)
		}
		return
	}

	sess.CancelInput()
	b.reply(sess, fmt.Sprintf("Added to cart: %s x%d pcs.", product.Name, quantity), nil)
	b.reply(sess, "Choose an action:", storefront.Keyboard{{
		{Label: "Continue shopping", Token: tokenContinue},
		{Label: "Go to cart", Token: tokenGoToCart},
	}})
}

func (b *Bot) showItemsForChange(sess *session.Session) {
	if sess.Cart.IsEmpty() {
		b.reply(sess, "Your cart is empty.", nil)
		return
	}

	var keyboard storefront.Keyboard
	for _, item := range sortedItems(sess.Cart) {
		keyboard = append(keyboard, []storefront.Button{{
			Label: fmt.Sprintf("%s (x%d)", item.Product.Name, item.Quantity),
			Token: fmt.Sprintf("%s%d", tokenChangeItemPrefix, item.Product.ID),
		}})
	}
	b.reply(sess, "Choose an item to change:", keyboard)
}

func (b *Bot) selectItemForChange(sess *session.Session, rawID string) {
	productID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.reply(sess, "Item not found in your cart.", nil)
		return
	}
	if _, ok := sess.Cart.Item(productID); !ok {
		b.reply(sess, "Item not found in your cart.", nil)
		return
	}

	sess.AwaitQuantityChange(productID)
	b.reply(sess, "Enter the new quantity for the selected item:", nil)
}

// completeQuantityChange finishes quantity-change entry. Zero removes the
// item and returns its whole reservation.
func (b *Bot) completeQuantityChange(sess *session.Session, text string) {
	quantity, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || quantity < 0 {
		b.reply(sess, "Please enter a valid quantity.", nil)
		return
	}

	productID := sess.PendingItem
	item, ok := sess.Cart.Item(productID)
	if !ok {
		sess.CancelInput()
		b.reply(sess, "Item not found in your cart.", b.mainMenu(sess.ID))
		return
	}
	name := item.Product.Name

	if err := b.carts.SetQuantity(sess.Cart, productID, quantity); err != nil {
		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			b.reply(sess, fmt.Sprintf("Not enough stock. %d pcs. available.", stockErr.Available), nil)
		case errors.Is(err, cartmodel.ErrItemNotFound):
			sess.CancelInput()
			b.reply(sess, "Item not found in your cart.", b.mainMenu(sess.ID))
		default:
			sess.CancelInput()
			b.replyFailure(sess, err)
		}
		return
	}

	sess.CancelInput()
	if quantity == 0 {
		b.reply(sess, fmt.Sprintf("'%s' has been removed from your cart.", name), nil)
		if sess.Cart.IsEmpty() {
			b.reply(sess, "Your cart is empty.", b.mainMenu(sess.ID))
			return
		}
	} else {
		b.reply(sess, fmt.Sprintf("Quantity of '%s' changed to %d.", name, quantity), nil)
	}
	b.showCart(sess)
}

func (b *Bot) clearCart(sess *session.Session) {
	if err := b.carts.Clear(sess.Cart, true); err != nil {
		b.replyFailure(sess, err)
		return
	}
	b.reply(sess, "Your cart has been cleared.", b.mainMenu(sess.ID))
}

func (b *Bot) startCheckout(sess *session.Session) {
	if sess.Cart.IsEmpty() {
		b.reply(sess, "Your cart is empty.", b.mainMenu(sess.ID))
		return
	}
	b.reply(sess, "Choose a delivery method:", storefront.Keyboard{
		{{Label: "Delivery to your pavilion", Token: tokenDeliveryPavilion}},
		{{Label: "Pickup", Token: tokenDeliveryPickup}},
	})
}

func (b *Bot) selectDelivery(sess *session.Session, method session.DeliveryMethod) {
	summary, err := b.checkout.SelectDelivery(sess, method)
	if err != nil {
		b.replyCheckoutError(sess, err)
		return
	}
	if summary == nil {
		b.reply(sess, "Please enter your pavilion number:", nil)
	}
}

func (b *Bot) completePavilion(sess *session.Session, text string) {
	pavilion := strings.TrimSpace(text)
	if pavilion == "" {
		b.reply(sess, "Please enter your pavilion number:", nil)
		return
	}
	if _, err := b.checkout.CapturePavilion(sess, pavilion); err != nil {
		b.replyCheckoutError(sess, err)
	}
}

func (b *Bot) replyCheckoutError(sess *session.Session, err error) {
	switch {
	case errors.Is(err, checkoutmodel.ErrEmptyOrder):
		b.reply(sess, "Your cart is empty.", b.mainMenu(sess.ID))
	case errors.Is(err, checkoutmodel.ErrIncompleteOrder):
		b.reply(sess, "Please choose a delivery method first.", nil)
	default:
		b.replyFailure(sess, err)
	}
}

func (b *Bot) closeStorefront(sess *session.Session) {
	// The lifecycle broadcast locks every registered session, this one
	// included, so the handler's lock is released for the duration.
	sess.Unlock()
	err := b.lifecycle.Close(sess.ID)
	sess.Lock()

	if err != nil {
		b.replyRosterError(sess, err)
		return
	}
	b.reply(sess, "Storefront closed. All carts have been cleared and stock returned.", nil)
	b.showAdminPanel(sess)
}

func (b *Bot) openStorefront(sess *session.Session) {
	sess.Unlock()
	err := b.lifecycle.Open(sess.ID)
	sess.Lock()

	if err != nil {
		b.replyRosterError(sess, err)
		return
	}
	b.reply(sess, "Storefront open.", nil)
	b.showAdminPanel(sess)
}

func (b *Bot) promptNewAdmin(sess *session.Session) {
	if !b.roster.IsAdmin(sess.ID) {
		b.replyDenied(sess)
		return
	}
	sess.AwaitNewAdminID()
	b.reply(sess, "Enter the identity of the user to add as an administrator:", nil)
}

// completeAddAdmin finishes new-admin entry; identities are numeric.
func (b *Bot) completeAddAdmin(sess *session.Session, text string) {
	identity := strings.TrimSpace(text)
	if !isNumeric(identity) {
		b.reply(sess, "Please enter a valid identity.", nil)
		return
	}

	if err := b.roster.AddAdmin(sess.ID, identity); err != nil {
		switch {
		case errors.Is(err, storefront.ErrAlreadyAdmin):
			b.reply(sess, "This user is already an administrator.", nil)
		case errors.Is(err, storefront.ErrNotAdmin):
			sess.CancelInput()
			b.replyDenied(sess)
		default:
			sess.CancelInput()
			b.replyFailure(sess, err)
		}
		return
	}

	sess.CancelInput()
	b.reply(sess, fmt.Sprintf("User %s has been added to the administrator list.", identity), nil)
}

func (b *Bot) showRemovableAdmins(sess *session.Session) {
	if !b.roster.IsSuperAdmin(sess.ID) {
		b.replyDenied(sess)
		return
	}

	removable := b.roster.Removable()
	if len(removable) == 0 {
		b.reply(sess, "No administrators to remove.", nil)
		return
	}

	var keyboard storefront.Keyboard
	for _, identity := range removable {
		keyboard = append(keyboard, []storefront.Button{{
			Label: "ID: " + identity,
			Token: tokenRemoveAdmin + identity,
		}})
	}
	b.reply(sess, "Choose an administrator to remove:", keyboard)
}

func (b *Bot) removeAdmin(sess *session.Session, identity string) {
	if err := b.roster.RemoveAdmin(sess.ID, identity); err != nil {
		switch {
		case errors.Is(err, storefront.ErrAdminNotFound):
			b.reply(sess, "Administrator not found.", nil)
		case errors.Is(err, storefront.ErrSuperAdminImmutable):
			b.reply(sess, "The super-admin cannot be removed.", nil)
		case errors.Is(err, storefront.ErrNotAdmin):
			b.replyDenied(sess)
		default:
			b.replyFailure(sess, err)
		}
		return
	}
	b.reply(sess, fmt.Sprintf("Administrator %s has been removed.", identity), nil)
}

func (b *Bot) promptCatalogUpload(sess *session.Session) {
	if !b.roster.IsAdmin(sess.ID) {
		b.replyDenied(sess)
		return
	}
	b.reply(sess, "Please send a JSON file with the catalog.", nil)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
