// Package docsage embeds the release note drafter and reviewer in a Go program.
//
// The client indexes past release notes and review comments into a vector
// index, then drafts a release note for a new design document or reviews an
// edited note against the most similar past review comments.
//
//	client, err := docsage.New(ctx,
//	    docsage.WithSQLite("./docsage_db"),
//	    docsage.WithOllama("http://localhost:11434"),
//	    docsage.WithEmbeddingModel("nomic-embed-text", 768),
//	    docsage.WithLLMModel("llama3.1"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, records)
//	fmt.Println(client.GenerateDraft(ctx, designDoc))
//
// Custom providers plug in through WithEmbedder and WithGenerator.
package docsage
