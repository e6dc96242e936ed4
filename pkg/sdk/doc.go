// Package semsearch embeds the semantic document store in a Go program.
//
// The client opens the document store (Postgres with pgvector, or SQLite)
// and an optional cache (Redis or bbolt), and runs the same ingestion and
// retrieval pipeline as the HTTP server without the network hop.
//
//	client, _ := semsearch.New(ctx,
//	    semsearch.WithSQLite("docs.db"),
//	    semsearch.WithBoltCache("cache.db"),
//	    semsearch.WithEmbedder(myEmbedder),
//	    semsearch.WithVectorDimensions(384),
//	)
//	defer client.Close()
//
//	id, _ := client.Insert(ctx, "The cat sleeps on the mat")
//	res, _ := client.Search(ctx, "where is the cat", 5)
package semsearch
