package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/GShadowBroker/library-server/models"
)

const bookFeedChannel = "book_added"

// BookFeed fans every successfully added book out to the currently connected
// subscribers. Subscribers register explicitly and are torn down with their
// connection. With a redis client configured, publishes travel through redis
// pub/sub so subscribers on other instances receive them too; without one,
// delivery is process-local.
type BookFeed struct {
	mu          sync.Mutex
	subscribers map[string]chan *models.Book
	redisClient *redis.Client
	pubsub      *redis.PubSub
}

func NewBookFeed(redisClient *redis.Client) *BookFeed {
	feed := &BookFeed{
		subscribers: make(map[string]chan *models.Book),
		redisClient: redisClient,
	}
	if redisClient != nil {
		feed.pubsub = redisClient.Subscribe(context.Background(), bookFeedChannel)
		go feed.fanIn()
	}
	return feed
}

// Subscribe registers a new subscriber and returns its id and channel. The
// channel is buffered; a subscriber that falls behind misses messages rather
// than blocking the publisher.
func (f *BookFeed) Subscribe() (string, <-chan *models.Book) {
	id := uuid.New().String()
	ch := make(chan *models.Book, 16)

	f.mu.Lock()
	f.subscribers[id] = ch
	f.mu.Unlock()

	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (f *BookFeed) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subscribers[id]; ok {
		delete(f.subscribers, id)
		close(ch)
	}
}

// Publish delivers the book to all subscribers. With redis configured the
// message goes through the shared channel and comes back via fanIn, so every
// instance delivers exactly once.
func (f *BookFeed) Publish(ctx context.Context, book *models.Book) {
	if f.redisClient == nil {
		f.deliver(book)
		return
	}
	payload, err := json.Marshal(book)
	if err != nil {
		slog.Error("failed to marshal book for feed", "title", book.Title, "error", err)
		return
	}
	if err := f.redisClient.Publish(ctx, bookFeedChannel, payload).Err(); err != nil {
		slog.Error("failed to publish book to redis, delivering locally", "title", book.Title, "error", err)
		f.deliver(book)
	}
}

// Close shuts down the redis fan-in loop, if any.
func (f *BookFeed) Close() error {
	if f.pubsub != nil {
		return f.pubsub.Close()
	}
	return nil
}

func (f *BookFeed) fanIn() {
	for msg := range f.pubsub.Channel() {
		var book models.Book
		if err := json.Unmarshal([]byte(msg.Payload), &book); err != nil {
			slog.Error("dropping malformed book feed message", "error", err)
			continue
		}
		f.deliver(&book)
	}
}

func (f *BookFeed) deliver(book *models.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subscribers {
		select {
		case ch <- book:
		default:
			slog.Warn("book feed subscriber too slow, dropping message", "subscriber", id)
		}
	}
}
