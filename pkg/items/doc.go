// Package items implements a multilingual, versioned item repository.
//
// An item is one logical content unit stored as one row per language. All
// language rows of the same unit share a source identifier, which equals the
// row identifier of the unit's defining language. Besides the canonical rows
// (pages and standard items) the same table shape carries two derived
// variants: immutable revision snapshots taken before every edit that
// changes a tracked attribute, and locked mirror rows that project an item
// into additional ("second") categories.
//
// Basic usage:
//
//	store := memory.New()
//	svc, err := items.New(
//		items.WithStore(store),
//		items.WithCategoryStore(categories),
//		items.WithLocalizer(items.NewStaticLocalizer(
//			items.Language{Code: "en", Active: true},
//			items.Language{Code: "fr"},
//		)),
//	)
//	if err != nil {
//		return err
//	}
//
//	actor := items.Actor{User: user, Language: "en"}
//	item, err := svc.Create(ctx, actor, items.CreateRequest{
//		CategoryID: 10,
//		Languages: map[string]items.Payload{
//			"en": {Title: "Hello"},
//			"fr": {Title: "Bonjour"},
//		},
//	})
//
// Writes are not atomic across languages: validation runs once for the whole
// request, after which every language row is written independently and a
// failure in one language is logged without aborting the others.
package items
