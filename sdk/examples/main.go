package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/dangerclosesec/huddle/sdk/client"
	"github.com/dangerclosesec/huddle/sdk/store"
)

const (
	// Change these values to match your environment
	serviceURL = "http://localhost:8080"
)

func main() {
	token := os.Getenv("HUDDLE_TOKEN")
	if token == "" {
		log.Fatal("HUDDLE_TOKEN is required; create one with `huddle users add <email>`")
	}

	// Initialize the client
	c := client.NewClient(&client.Config{
		BaseURL: serviceURL,
		Token:   token,
		Timeout: 10 * time.Second,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := runExample(ctx, c); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Error running example: %v", err)
	}
}

func runExample(ctx context.Context, c *client.Client) error {
	fmt.Println("Running huddle SDK example...")

	me, err := c.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to load current user: %w", err)
	}
	fmt.Printf("Signed in as %s (%s)\n", me.DisplayName, me.Email)

	cache := store.New(me.ID)
	unsubscribe := cache.Subscribe(func() {
		fmt.Printf("  cache now holds %d team(s)\n", len(cache.Teams()))
	})
	defer unsubscribe()

	// Step 1: open the realtime stream first so writes below carry our socket id
	fmt.Println("\n1. Connecting to realtime...")
	stream, err := c.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer stream.Close()
	fmt.Printf("Socket id: %s\n", stream.SocketID())

	// Step 2: create a team, topic and discussion, applying each response directly
	fmt.Println("\n2. Creating a team...")
	team, err := c.AddTeam(ctx, &client.AddTeamRequest{Name: "SDK Example"})
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	cache.ApplyTeam(client.ActionAdded, team)
	fmt.Printf("Team created: %s (%s)\n", team.Name, team.Slug)

	if err := stream.JoinTeam(team.ID); err != nil {
		return err
	}

	topic, err := c.AddTopic(ctx, &client.AddTopicRequest{TeamID: team.ID, Name: "General"})
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	cache.ApplyTopic(client.ActionAdded, topic)

	discussion, err := c.AddDiscussion(ctx, &client.AddDiscussionRequest{TopicID: topic.ID, Name: "Welcome"})
	if err != nil {
		return fmt.Errorf("failed to create discussion: %w", err)
	}
	cache.ApplyDiscussion(client.ActionAdded, discussion)
	if err := stream.JoinDiscussion(discussion.ID); err != nil {
		return err
	}

	// Step 3: post some markdown
	fmt.Println("\n3. Posting...")
	post, err := c.AddPost(ctx, &client.AddPostRequest{DiscussionID: discussion.ID, Content: "Hello from the **SDK**"})
	if err != nil {
		return fmt.Errorf("failed to post: %w", err)
	}
	cache.ApplyPost(client.ActionAdded, post)
	fmt.Printf("Rendered: %s", post.HTMLContent)

	// Step 4: reload the discussion listing as a reconnecting client would
	page, err := c.ListDiscussions(ctx, &client.ListDiscussionsRequest{TopicID: topic.ID})
	if err != nil {
		return fmt.Errorf("failed to list discussions: %w", err)
	}
	cache.ReplaceDiscussions(topic.ID, page.Discussions)
	fmt.Printf("\n4. Topic %q has %d discussion(s)\n", topic.Name, page.TotalCount)

	// Step 5: follow changes made by other members until interrupted
	fmt.Println("\n5. Listening for changes from other members (Ctrl+C to stop)...")
	err = cache.Run(ctx, stream, func(err error) {
		fmt.Printf("  skipped event: %v\n", err)
	})
	if streamErr := stream.Err(); streamErr != nil {
		return fmt.Errorf("realtime connection lost: %w", streamErr)
	}
	return err
}
