// Seeds the catalogue with a starting set of authors. Safe to run more than
// once: authors are matched by name and never duplicated.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/GShadowBroker/library-server/models"
	"github.com/GShadowBroker/library-server/repository"
)

var seedAuthors = []struct {
	name string
	born int // 0 when unknown
}{
	{"Robert Martin", 1952},
	{"Martin Fowler", 1963},
	{"Fyodor Dostoevsky", 1821},
	{"Joshua Kerievsky", 0},
	{"Sandi Metz", 0},
}

func main() {
	godotenv.Load()

	uri := os.Getenv("MONGODB_CONNECTION_URI")
	if uri == "" {
		fmt.Fprintln(os.Stderr, "MONGODB_CONNECTION_URI environment variable is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err == nil {
		err = client.Ping(ctx, nil)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	authors := repository.NewMongoAuthorRepository(client.Database("library"))

	created := 0
	for _, seed := range seedAuthors {
		existing, err := authors.FindByName(ctx, seed.name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error looking up %s: %v\n", seed.name, err)
			os.Exit(1)
		}
		if existing != nil {
			fmt.Printf("Skipping %s, already present\n", seed.name)
			continue
		}

		author := &models.Author{Name: seed.name, BookIDs: []string{}}
		if seed.born != 0 {
			born := seed.born
			author.Born = &born
		}
		if err := authors.Create(ctx, author); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", seed.name, err)
			os.Exit(1)
		}
		fmt.Printf("Created %s\n", seed.name)
		created++
	}

	fmt.Printf("Seeding complete, %d authors created\n", created)
}
