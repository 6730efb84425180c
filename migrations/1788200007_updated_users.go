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

		users.Fields.Add(
			&core.SelectField{Name: "role", MaxSelect: 1, Values: []string{
				"buyer",
				"operator",
			}},
			// purchase history, appended by the reservation coordinator
			&core.RelationField{Name: "transactions", CollectionId: transactions.Id, MaxSelect: 9999},
		)
		return app.Save(users)
	}, func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		users.Fields.RemoveByName("role")
		users.Fields.RemoveByName("transactions")
		return app.Save(users)
	})
}
