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

		collection := core.NewBaseCollection("transactions")
		collection.Fields.Add(
			&core.TextField{Name: "code", Required: true},
			&core.RelationField{Name: "user", Required: true, CollectionId: users.Id, MaxSelect: 1},
			// embedded PurchasedTicket list; tickets are not independently
			// addressable records
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
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		collection.AddIndex("idx_transactions_user", false, "`user`", "")
		collection.AddIndex("idx_transactions_status_expires", false, "`status`, `expires_at`", "")
		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("transactions")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
