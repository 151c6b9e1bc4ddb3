package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
	"github.com/zhouzirui/heartnote/backend/internal/service/journey"
)

type StatsCmd struct {
	User string `arg:"" help:"User id."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	stats, err := ctx.Engine.ComputeStatistics(ctx.Ctx, c.User)
	if err != nil {
		return err
	}
	for _, cat := range journey.Categories {
		fmt.Fprintf(ctx.Out, "%-18s %d\n", cat, stats.Count(cat))
	}
	return nil
}

type ListCmd struct {
	User     string `arg:"" help:"User id."`
	Category string `arg:"" help:"heart-to-hearts, growth-moments, goals-achieved or breakthrough-days."`
	Limit    int    `help:"Page size." default:"10"`
	Cursor   string `help:"Continuation token from a previous page."`
}

func (c *ListCmd) Run(ctx *Context) error {
	category, err := journey.ParseCategory(c.Category)
	if err != nil {
		return err
	}
	page, err := ctx.Engine.ListCategory(ctx.Ctx, c.User, category, c.Cursor, c.Limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(ctx.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}

type FavoriteCmd struct {
	User    string `arg:"" help:"User id."`
	Message string `arg:"" help:"Message id."`
	Remove  bool   `help:"Remove the favorite instead of adding it."`
}

func (c *FavoriteCmd) Run(ctx *Context) error {
	if c.Remove {
		removed, err := ctx.Engine.RemoveFavorite(ctx.Ctx, c.User, c.Message)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintln(ctx.Out, "Message was not favorited.")
			return nil
		}
		fmt.Fprintln(ctx.Out, "✓ Favorite removed")
		return nil
	}

	created, err := ctx.Engine.RecordFavorite(ctx.Ctx, c.User, c.Message)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintln(ctx.Out, "Message already favorited.")
		return nil
	}
	fmt.Fprintln(ctx.Out, "✓ Favorite added")
	return nil
}

type SeedCmd struct {
	User string `arg:"" help:"User id that will own the sample chats."`
}

type seedMessage struct {
	chat    int
	content string
	emotion string
	at      time.Time
}

var seedMessages = []seedMessage{
	{chat: 0, content: "I achieved my goal today!", emotion: "joy", at: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)},
	{chat: 0, content: "Feeling happy.", emotion: "gratitude", at: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
	{chat: 1, content: "Great success!", emotion: "excitement", at: time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC)},
}

// Run creates two chats holding three favorited, emotion-tagged messages.
func (c *SeedCmd) Run(ctx *Context) error {
	chats := []chat.Chat{
		{OwnerID: c.User, Name: "Sunday run"},
		{OwnerID: c.User, Name: "Work week"},
	}
	for i := range chats {
		if err := ctx.Store.CreateChat(ctx.Ctx, &chats[i]); err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
	}

	for _, s := range seedMessages {
		emotion := s.emotion
		confidence := 0.8
		m := chat.Message{
			ChatID:            chats[s.chat].ID,
			Author:            chat.AuthorUser,
			Content:           s.content,
			Emotion:           &emotion,
			EmotionConfidence: &confidence,
			CreatedAt:         s.at,
		}
		if err := ctx.Store.CreateMessage(ctx.Ctx, &m); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		if _, err := ctx.Engine.RecordFavorite(ctx.Ctx, c.User, m.ID); err != nil {
			return fmt.Errorf("favorite message: %w", err)
		}
		fmt.Fprintf(ctx.Out, "  %s  %s\n", m.ID, s.content)
	}

	fmt.Fprintf(ctx.Out, "✓ Seeded %d favorites across %d chats for %s\n", len(seedMessages), len(chats), c.User)
	return nil
}
