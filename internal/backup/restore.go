package backup

import (
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/services"
)

// idMap tracks old-id -> new-id assignments during a restore. Maps live only
// for the duration of the transaction.
type idMap map[uint]uint

func (m idMap) resolve(old uint) (uint, bool) {
	id, ok := m[old]
	return id, ok
}

// resolveOpt remaps an optional reference, degrading to nil when the
// original is absent or unresolved.
func (m idMap) resolveOpt(old *uint) *uint {
	if old == nil {
		return nil
	}
	if id, ok := m[*old]; ok {
		return &id
	}
	return nil
}

// RestoreStats reports per-table insert and skip counts for the operator.
type RestoreStats struct {
	Inserted map[string]int `json:"inserted"`
	Skipped  map[string]int `json:"skipped"`
}

func newStats() *RestoreStats {
	return &RestoreStats{Inserted: map[string]int{}, Skipped: map[string]int{}}
}

func (st *RestoreStats) skip(table string) {
	st.Skipped[table]++
	log.Warnf("restore: skipping %s row with unresolved reference", table)
}

// RestoreTenant replaces all of targetTenantID's data with the document's
// contents inside one transaction. Existing rows are deleted children-first,
// then every backed-up row is reinserted with freshly assigned primary keys;
// foreign keys resolve through transaction-local id maps. Rows whose parent
// cannot be resolved are skipped (mandatory references) or inserted with a
// nil reference (optional ones) — never a stale original id. Any error rolls
// the whole operation back.
func (e *TenantEngine) RestoreTenant(doc *TenantDocument, targetTenantID uint) (*RestoreStats, error) {
	if doc == nil || doc.Metadata.Type != documentType {
		return nil, ErrInvalidDocument
	}
	stats := newStats()
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := services.PurgeTenantData(tx, targetTenantID); err != nil {
			return err
		}

		userIDs := idMap{}
		for _, rec := range doc.Users {
			old := rec.User.ID
			u := rec.User
			u.ID = 0
			u.TenantID = &targetTenantID
			u.Password = rec.Password
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			userIDs[old] = u.ID
			stats.Inserted["users"]++
		}

		catIDs := idMap{}
		for _, c := range doc.Categories {
			old := c.ID
			c.ID = 0
			c.TenantID = targetTenantID
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			catIDs[old] = c.ID
			stats.Inserted["categories"]++
		}

		modIDs := idMap{}
		for _, m := range doc.MenuModifiers {
			old := m.ID
			m.ID = 0
			m.TenantID = targetTenantID
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			modIDs[old] = m.ID
			stats.Inserted["menu_modifiers"]++
		}

		itemIDs := idMap{}
		for _, mi := range doc.MenuItems {
			old := mi.ID
			newCat, ok := catIDs.resolve(mi.CategoryID)
			if !ok {
				stats.skip("menu_items")
				continue
			}
			mi.ID = 0
			mi.TenantID = targetTenantID
			mi.CategoryID = newCat
			mi.Variants = nil
			if err := tx.Create(&mi).Error; err != nil {
				return err
			}
			itemIDs[old] = mi.ID
			stats.Inserted["menu_items"]++
		}

		variantIDs := idMap{}
		for _, v := range doc.MenuVariants {
			old := v.ID
			newItem, ok := itemIDs.resolve(v.MenuItemID)
			if !ok {
				stats.skip("menu_variants")
				continue
			}
			v.ID = 0
			v.MenuItemID = newItem
			if err := tx.Create(&v).Error; err != nil {
				return err
			}
			variantIDs[old] = v.ID
			stats.Inserted["menu_variants"]++
		}

		for _, p := range doc.MenuItemModifiers {
			newItem, okItem := itemIDs.resolve(p.MenuItemID)
			newMod, okMod := modIDs.resolve(p.MenuModifierID)
			if !okItem || !okMod {
				stats.skip("menu_item_modifiers")
				continue
			}
			p.ID = 0
			p.MenuItemID = newItem
			p.MenuModifierID = newMod
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			stats.Inserted["menu_item_modifiers"]++
		}

		tableIDs := idMap{}
		for _, t := range doc.Tables {
			old := t.ID
			t.ID = 0
			t.TenantID = targetTenantID
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
			tableIDs[old] = t.ID
			stats.Inserted["tables"]++
		}

		custIDs := idMap{}
		for _, c := range doc.Customers {
			old := c.ID
			c.ID = 0
			c.TenantID = targetTenantID
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			custIDs[old] = c.ID
			stats.Inserted["customers"]++
		}

		orderIDs := idMap{}
		for _, o := range doc.Orders {
			old := o.ID
			o.ID = 0
			o.TenantID = targetTenantID
			o.TableID = tableIDs.resolveOpt(o.TableID)
			o.CustomerID = custIDs.resolveOpt(o.CustomerID)
			o.UserID = userIDs.resolveOpt(o.UserID)
			o.Items = nil
			if err := tx.Create(&o).Error; err != nil {
				return err
			}
			orderIDs[old] = o.ID
			stats.Inserted["orders"]++
		}

		orderItemIDs := idMap{}
		for _, it := range doc.OrderItems {
			old := it.ID
			newOrder, okOrder := orderIDs.resolve(it.OrderID)
			newMenuItem, okItem := itemIDs.resolve(it.MenuItemID)
			if !okOrder || !okItem {
				stats.skip("order_items")
				continue
			}
			it.ID = 0
			it.OrderID = newOrder
			it.MenuItemID = newMenuItem
			it.MenuVariantID = variantIDs.resolveOpt(it.MenuVariantID)
			it.Modifiers = nil
			if err := tx.Create(&it).Error; err != nil {
				return err
			}
			orderItemIDs[old] = it.ID
			stats.Inserted["order_items"]++
		}

		for _, m := range doc.OrderItemModifiers {
			newItem, ok := orderItemIDs.resolve(m.OrderItemID)
			if !ok {
				stats.skip("order_item_modifiers")
				continue
			}
			m.ID = 0
			m.OrderItemID = newItem
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			stats.Inserted["order_item_modifiers"]++
		}

		for _, p := range doc.Payments {
			newOrder, ok := orderIDs.resolve(p.OrderID)
			if !ok {
				stats.skip("payments")
				continue
			}
			p.ID = 0
			p.TenantID = targetTenantID
			p.OrderID = newOrder
			p.ReceivedBy = userIDs.resolveOpt(p.ReceivedBy)
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			stats.Inserted["payments"]++
		}

		ingIDs := idMap{}
		for _, ing := range doc.Ingredients {
			old := ing.ID
			ing.ID = 0
			ing.TenantID = targetTenantID
			if err := tx.Create(&ing).Error; err != nil {
				return err
			}
			ingIDs[old] = ing.ID
			stats.Inserted["ingredients"]++
		}

		for _, rc := range doc.Recipes {
			newItem, okItem := itemIDs.resolve(rc.MenuItemID)
			newIng, okIng := ingIDs.resolve(rc.IngredientID)
			if !okItem || !okIng {
				stats.skip("recipes")
				continue
			}
			rc.ID = 0
			rc.TenantID = targetTenantID
			rc.MenuItemID = newItem
			rc.IngredientID = newIng
			if err := tx.Create(&rc).Error; err != nil {
				return err
			}
			stats.Inserted["recipes"]++
		}

		for _, mv := range doc.StockMovements {
			newIng, ok := ingIDs.resolve(mv.IngredientID)
			if !ok {
				stats.skip("stock_movements")
				continue
			}
			mv.ID = 0
			mv.TenantID = targetTenantID
			mv.IngredientID = newIng
			mv.UserID = userIDs.resolveOpt(mv.UserID)
			if err := tx.Create(&mv).Error; err != nil {
				return err
			}
			stats.Inserted["stock_movements"]++
		}

		for _, sub := range doc.Subscriptions {
			sub.ID = 0
			sub.TenantID = targetTenantID
			if err := tx.Create(&sub).Error; err != nil {
				return err
			}
			stats.Inserted["subscriptions"]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
