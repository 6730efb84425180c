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

		collection := core.NewBaseCollection("wristbands")
		collection.Fields.Add(
			&core.TextField{Name: "barcode", Required: true},
			&core.BoolField{Name: "scanned"},
			&core.RelationField{Name: "scanned_by", CollectionId: users.Id, MaxSelect: 1},
			&core.DateField{Name: "scanned_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		collection.AddIndex("idx_wristbands_barcode", true, "`barcode`", "")
		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("wristbands")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
