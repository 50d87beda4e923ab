// Command game-simulator stands in for the external game runners: it plays
// synthetic snake sessions and publishes full-snapshot events to the
// game-events topic, ending each session with a game_over.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/snake-arena/backend/internal/domain"
	"github.com/snake-arena/backend/internal/kafka"
)

const gridSize = 20

var playerNames = []string{
	"PixelMaster", "NeonViper", "RetroKing", "ArcadeQueen", "SnakeCharmer",
	"GlitchHunter", "TurboTail", "NovaCoil", "ByteBiter", "GridRunner",
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "game-events", "Kafka topic")
	games := flag.Int("games", 3, "Concurrent simulated games")
	tick := flag.Duration("tick", 500*time.Millisecond, "Snapshot publish interval")
	lifetime := flag.Duration("lifetime", 45*time.Second, "How long each game runs before game over")
	flag.Parse()

	fmt.Printf("game-simulator: %d games, tick %s, lifetime %s, topic %s\n",
		*games, *tick, *lifetime, *topic)

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(strings.Split(*brokers, ","), config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	go func() {
		for err := range producer.Errors() {
			log.Printf("Producer error: %v", err)
		}
	}()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < *games; i++ {
		wg.Add(1)
		go func(player string) {
			defer wg.Done()
			for {
				runGame(producer, *topic, player, *tick, *lifetime, done)
				select {
				case <-done:
					return
				default:
				}
			}
		}(playerNames[i%len(playerNames)])
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("shutting down...")
	close(done)
	wg.Wait()
}

// runGame plays one session from spawn to game over
func runGame(producer sarama.AsyncProducer, topic, player string, tick, lifetime time.Duration, done <-chan struct{}) {
	game := newGame(player)
	deadline := time.Now().Add(lifetime)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			game.Status = domain.GameStatusGameOver
			publish(producer, topic, kafka.GameEvent{Type: kafka.EventTypeGameOver, Game: game})
			return
		}

		advance(&game)
		publish(producer, topic, kafka.GameEvent{Type: kafka.EventTypeSnapshot, Game: game})
	}
}

func newGame(player string) domain.ActiveGame {
	mode := domain.GameModeWalls
	if rand.Intn(2) == 0 {
		mode = domain.GameModePassThrough
	}
	head := domain.Position{X: rand.Intn(gridSize), Y: rand.Intn(gridSize)}
	return domain.ActiveGame{
		ID:        uuid.New().String(),
		Username:  player,
		GameMode:  mode,
		Snake:     []domain.Position{head, {X: head.X - 1, Y: head.Y}, {X: head.X - 2, Y: head.Y}},
		Food:      domain.Position{X: rand.Intn(gridSize), Y: rand.Intn(gridSize)},
		Direction: domain.DirectionRight,
		Status:    domain.GameStatusPlaying,
		StartedAt: time.Now().UTC(),
	}
}

// advance moves the snake one cell, growing when it reaches the food
func advance(game *domain.ActiveGame) {
	if rand.Intn(4) == 0 {
		game.Direction = turn(game.Direction)
	}

	head := game.Head()
	switch game.Direction {
	case domain.DirectionUp:
		head.Y--
	case domain.DirectionDown:
		head.Y++
	case domain.DirectionLeft:
		head.X--
	case domain.DirectionRight:
		head.X++
	}
	head.X = (head.X + gridSize) % gridSize
	head.Y = (head.Y + gridSize) % gridSize

	grew := head == game.Food
	snake := append([]domain.Position{head}, game.Snake...)
	if grew {
		game.Score += 10
		game.Food = domain.Position{X: rand.Intn(gridSize), Y: rand.Intn(gridSize)}
	} else {
		snake = snake[:len(snake)-1]
	}
	game.Snake = snake
}

func turn(d domain.Direction) domain.Direction {
	switch d {
	case domain.DirectionUp, domain.DirectionDown:
		if rand.Intn(2) == 0 {
			return domain.DirectionLeft
		}
		return domain.DirectionRight
	default:
		if rand.Intn(2) == 0 {
			return domain.DirectionUp
		}
		return domain.DirectionDown
	}
}

func publish(producer sarama.AsyncProducer, topic string, event kafka.GameEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event: %v", err)
		return
	}
	producer.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.Game.ID),
		Value: sarama.ByteEncoder(data),
	}
}
