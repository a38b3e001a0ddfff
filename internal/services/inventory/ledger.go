// Package inventory implements the stock ledger: per-product on-hand/reserved
// counters plus an append-only movement log. Every mutation runs with the
// balance row locked (SELECT ... FOR UPDATE) for the duration of its
// transaction, which is the system's primary defense against oversell.
package inventory

import (
	"errors"
	"fmt"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/apperr"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger owns all balance mutations. Receive/Adjust/Waste open their own
// transactions; the *Tx variants participate in a caller transaction so the
// order lifecycle engine can make reserve/release/consume atomic with the
// order rows.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a stock ledger on top of db
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// LockProductTx fetches a product by id with a row lock. requireActive is set
// for order placement; stock operations work on inactive products too.
func LockProductTx(tx *gorm.DB, productID uint, requireActive bool) (*models.Product, error) {
	var product models.Product
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if requireActive {
		q = q.Where("id = ? AND is_active = ?", productID, true)
	} else {
		q = q.Where("id = ?", productID)
	}
	if err := q.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if requireActive {
				return nil, apperr.NotFoundf("product %d not found or inactive", productID)
			}
			return nil, apperr.NotFoundf("product %d not found", productID)
		}
		return nil, err
	}
	return &product, nil
}

// LockBalanceTx returns the product's balance row locked for update, creating
// it lazily on first reference.
func LockBalanceTx(tx *gorm.DB, productID uint) (*models.InventoryBalance, error) {
	var balance models.InventoryBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	balance = models.InventoryBalance{ProductID: productID}
	if createErr := tx.Create(&balance).Error; createErr != nil {
		// Lost the insert race to a concurrent transaction; fall back to
		// the locked select, which now blocks until that row commits.
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", productID).
			First(&balance).Error
		if err != nil {
			return nil, createErr
		}
	}
	return &balance, nil
}

func appendMovement(tx *gorm.DB, productID uint, kind models.MovementType, qty int, orderID, actorID *uint, note string) (*models.InventoryMovement, error) {
	movement := models.InventoryMovement{
		ProductID:    productID,
		MovementType: kind,
		Quantity:     qty,
		OrderID:      orderID,
		CreatedByID:  actorID,
		Note:         note,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

// Receive adds stock to a product's on-hand quantity. Always legal for a
// positive quantity; the balance row is created if missing.
func (l *Ledger) Receive(productID uint, quantity int, actorID *uint, note string) (*models.InventoryBalance, *models.InventoryMovement, error) {
	if quantity <= 0 {
		return nil, nil, apperr.Validationf("quantity must be positive")
	}

	var balance *models.InventoryBalance
	var movement *models.InventoryMovement
	err := l.db.Transaction(func(tx *gorm.DB) error {
		product, err := LockProductTx(tx, productID, false)
		if err != nil {
			return err
		}
		balance, err = LockBalanceTx(tx, product.ID)
		if err != nil {
			return err
		}
		balance.OnHand += quantity
		if err := tx.Save(balance).Error; err != nil {
			return err
		}
		movement, err = appendMovement(tx, product.ID, models.MovementReceipt, quantity, nil, actorID, note)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return balance, movement, nil
}

// Adjust applies a signed delta to on-hand stock. Rejects deltas that would
// drive on_hand negative or below the reserved quantity.
func (l *Ledger) Adjust(productID uint, delta int, actorID *uint, note string) (*models.InventoryBalance, *models.InventoryMovement, error) {
	if delta == 0 {
		return nil, nil, apperr.Validationf("delta must be non-zero")
	}

	var balance *models.InventoryBalance
	var movement *models.InventoryMovement
	err := l.db.Transaction(func(tx *gorm.DB) error {
		product, err := LockProductTx(tx, productID, false)
		if err != nil {
			return err
		}
		balance, err = LockBalanceTx(tx, product.ID)
		if err != nil {
			return err
		}

		newOnHand := balance.OnHand + delta
		if newOnHand < 0 {
			return apperr.Validationf("insufficient stock: current %d, requested delta %d", balance.OnHand, delta)
		}
		if newOnHand < balance.Reserved {
			return apperr.Validationf("cannot reduce stock below reserved quantity: reserved %d, new on-hand would be %d", balance.Reserved, newOnHand)
		}

		balance.OnHand = newOnHand
		if err := tx.Save(balance).Error; err != nil {
			return err
		}

		qty := delta
		if qty < 0 {
			qty = -qty
		}
		movement, err = appendMovement(tx, product.ID, models.MovementAdjustment, qty, nil, actorID, fmt.Sprintf("%+d - %s", delta, note))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return balance, movement, nil
}

// Waste writes off stock that was spoiled or damaged. Same bounds as a
// negative adjustment, recorded with its own movement kind.
func (l *Ledger) Waste(productID uint, quantity int, actorID *uint, note string) (*models.InventoryBalance, *models.InventoryMovement, error) {
	if quantity <= 0 {
		return nil, nil, apperr.Validationf("quantity must be positive")
	}

	var balance *models.InventoryBalance
	var movement *models.InventoryMovement
	err := l.db.Transaction(func(tx *gorm.DB) error {
		product, err := LockProductTx(tx, productID, false)
		if err != nil {
			return err
		}
		balance, err = LockBalanceTx(tx, product.ID)
		if err != nil {
			return err
		}

		newOnHand := balance.OnHand - quantity
		if newOnHand < 0 {
			return apperr.Validationf("insufficient stock: current %d, waste %d", balance.OnHand, quantity)
		}
		if newOnHand < balance.Reserved {
			return apperr.Validationf("cannot reduce stock below reserved quantity: reserved %d, new on-hand would be %d", balance.Reserved, newOnHand)
		}

		balance.OnHand = newOnHand
		if err := tx.Save(balance).Error; err != nil {
			return err
		}
		movement, err = appendMovement(tx, product.ID, models.MovementWaste, quantity, nil, actorID, note)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return balance, movement, nil
}

// ReserveTx places a hold on stock for an order line. The availability check
// runs under the row lock, so concurrent orders cannot both pass it against
// stale counters. Caller owns the transaction; any error must roll it back.
func (l *Ledger) ReserveTx(tx *gorm.DB, product *models.Product, quantity int, order *models.Order) (*models.InventoryBalance, error) {
	if quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive")
	}
	balance, err := LockBalanceTx(tx, product.ID)
	if err != nil {
		return nil, err
	}
	if balance.Available() < quantity {
		return nil, apperr.Validationf("insufficient inventory for %s: available %d, requested %d", product.Name, balance.Available(), quantity)
	}
	balance.Reserved += quantity
	if err := tx.Save(balance).Error; err != nil {
		return nil, err
	}
	if _, err := appendMovement(tx, product.ID, models.MovementReserve, quantity, &order.ID, nil, fmt.Sprintf("Reserved for order #%d", order.ID)); err != nil {
		return nil, err
	}
	return balance, nil
}

// ReleaseTx returns a reservation to the available pool on cancellation.
// Refuses quantities exceeding the current reservation: a negative reserved
// count has no meaning.
func (l *Ledger) ReleaseTx(tx *gorm.DB, productID uint, quantity int, order *models.Order, actorID *uint) (*models.InventoryBalance, error) {
	if quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive")
	}
	balance, err := LockBalanceTx(tx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > balance.Reserved {
		return nil, apperr.Validationf("cannot release %d: only %d reserved", quantity, balance.Reserved)
	}
	balance.Reserved -= quantity
	if err := tx.Save(balance).Error; err != nil {
		return nil, err
	}
	if _, err := appendMovement(tx, productID, models.MovementRelease, quantity, &order.ID, actorID, fmt.Sprintf("Released from cancelled order #%d", order.ID)); err != nil {
		return nil, err
	}
	return balance, nil
}

// ConsumeTx converts a reservation into an actual depletion on delivery:
// reserved and on-hand both decrease.
func (l *Ledger) ConsumeTx(tx *gorm.DB, productID uint, quantity int, order *models.Order, actorID *uint) (*models.InventoryBalance, error) {
	if quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive")
	}
	balance, err := LockBalanceTx(tx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > balance.Reserved {
		return nil, apperr.Validationf("cannot consume %d: only %d reserved", quantity, balance.Reserved)
	}
	if quantity > balance.OnHand {
		return nil, apperr.Validationf("cannot consume %d: only %d on hand", quantity, balance.OnHand)
	}
	balance.Reserved -= quantity
	balance.OnHand -= quantity
	if err := tx.Save(balance).Error; err != nil {
		return nil, err
	}
	if _, err := appendMovement(tx, productID, models.MovementConsume, quantity, &order.ID, actorID, fmt.Sprintf("Consumed for order #%d delivery", order.ID)); err != nil {
		return nil, err
	}
	return balance, nil
}

// Balances returns all balances with products, for the staff inventory view
func (l *Ledger) Balances() ([]models.InventoryBalance, error) {
	var balances []models.InventoryBalance
	err := l.db.Preload("Product").Preload("Product.Category").
		Joins("JOIN products ON products.id = inventory_balances.product_id").
		Order("products.name").
		Find(&balances).Error
	return balances, err
}

// Movements returns the movement log, newest first, optionally scoped to one
// product
func (l *Ledger) Movements(productID *uint) ([]models.InventoryMovement, error) {
	var movements []models.InventoryMovement
	q := l.db.Preload("Product").Order("created_at DESC, id DESC")
	if productID != nil {
		q = q.Where("product_id = ?", *productID)
	}
	err := q.Find(&movements).Error
	return movements, err
}
