package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		transactions, err := app.FindCollectionByNameOrId("transactions")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("scan_logs")
		collection.Fields.Add(
			&core.TextField{Name: "token", Required: true},
			&core.RelationField{Name: "transaction", CollectionId: transactions.Id, MaxSelect: 1},
			&core.RelationField{Name: "operator", CollectionId: users.Id, MaxSelect: 1},
			&core.DateField{Name: "scanned_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		collection.AddIndex("idx_scan_logs_token", false, "`token`", "")
		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("scan_logs")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
