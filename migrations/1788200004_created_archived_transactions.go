package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("archived_transactions")
		collection.Fields.Add(
			&core.TextField{Name: "code", Required: true},
			&core.RelationField{Name: "user", Required: true, CollectionId: users.Id, MaxSelect: 1},
			&core.JSONField{Name: "tickets", MaxSize: 2000000},
			&core.NumberField{Name: "total_ticket", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.NumberField{Name: "total_price", Min: types.Pointer(0.0)},
			&core.SelectField{Name: "status", MaxSelect: 1, Values: []string{
				"pending",
				"paid",
				"reject",
				"expired",
			}},
			&core.TextField{Name: "method"},
			&core.TextField{Name: "payment_proof"},
			&core.DateField{Name: "expires_at"},
			&core.RelationField{Name: "verified_by", CollectionId: users.Id, MaxSelect: 1},
			&core.DateField{Name: "verified_at"},
			// back-reference to the removed active record; plain text since
			// the target no longer exists
			&core.TextField{Name: "original_transaction", Required: true},
			&core.DateField{Name: "archived_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		collection.AddIndex("idx_archived_original", false, "`original_transaction`", "")
		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("archived_transactions")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
