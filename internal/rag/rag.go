// Package rag answers natural-language questions against an indexed
// document collection: normalize the question, retrieve the most similar
// chunks, and hand them to the generation model as context.
package rag

import (
	"context"
	"fmt"
	"strings"

	"tome/internal/llm"
	"tome/internal/logger"
	"tome/internal/normalize"
	"tome/internal/vecindex"
)

// DefaultK is how many chunks a question retrieves unless overridden.
const DefaultK = 4

const systemPrompt = `You are a document assistant. You answer questions using only the retrieved document excerpts provided below.

Ground every statement in the excerpts and cite the source file (and page, when given) you drew it from. If the excerpts do not contain enough information to answer, say so plainly instead of guessing.

Keep answers concise.`

// Retrieve normalizes the question and returns the k nearest chunks from
// the index, most similar first.
func Retrieve(ctx context.Context, h *vecindex.Handle, question string, k int) ([]vecindex.Result, error) {
	if k <= 0 {
		k = DefaultK
	}
	cleaned := normalize.Text(question)
	if cleaned == "" {
		return nil, fmt.Errorf("question is empty after normalization")
	}
	logger.Debug("retrieving %d chunks for %q", k, cleaned)
	return h.Retrieve(ctx, cleaned, k)
}

// BuildMessages constructs the conversation for the generation model from
// retrieved chunks, prior turns, and the current question.
func BuildMessages(results []vecindex.Result, history []llm.Message, question string) []llm.Message {
	msgs := []llm.Message{{Role: "system", Content: systemPrompt}}

	if len(results) > 0 {
		var ctx strings.Builder
		ctx.WriteString("Here are the relevant document excerpts:\n\n")
		for i, r := range results {
			fmt.Fprintf(&ctx, "--- Excerpt %d: %s", i+1, r.Chunk.Metadata.Filename)
			if r.Chunk.Metadata.Page > 0 {
				fmt.Fprintf(&ctx, " (page %d)", r.Chunk.Metadata.Page)
			}
			ctx.WriteString(" ---\n")
			ctx.WriteString(r.Chunk.Text)
			ctx.WriteString("\n\n")
		}
		msgs = append(msgs, llm.Message{Role: "user", Content: ctx.String()})
		msgs = append(msgs, llm.Message{Role: "assistant", Content: "I've read the excerpts. What would you like to know?"})
	}

	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: "user", Content: question})
	return msgs
}

// Answer runs the full question path: retrieve context, build the
// conversation, and generate a response. The retrieved chunks are
// returned alongside the answer so callers can show sources.
func Answer(ctx context.Context, h *vecindex.Handle, chat *llm.Chat, history []llm.Message, question string, k int) (string, []vecindex.Result, error) {
	results, err := Retrieve(ctx, h, question, k)
	if err != nil {
		return "", nil, err
	}

	msgs := BuildMessages(results, history, question)
	answer, err := chat.Generate(ctx, msgs)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}
	return answer, results, nil
}
