// Package files persists the files the user owns.
//
// Each row holds one models.OwnedFile serialised as JSON, keyed by its id,
// plus creation and update timestamps used for ordering. A SQLite-backed
// implementation (SQLiteRepository) works over a dbx.DBTX, so it can run
// inside a transaction.
//
//	repo := files.NewSQLiteRepository(db)
//	_ = repo.Upsert(ctx, f)
//	f, _ := repo.Get(ctx, id)
//	all, _ := repo.List(ctx)
package files
