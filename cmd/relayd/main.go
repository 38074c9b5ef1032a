package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	cbxzerolog "github.com/dgonzalezf/cdcbox/logger/zerolog"
	cbxkafka "github.com/dgonzalezf/cdcbox/publisher/kafka"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/dgonzalezf/cdcbox/consumer"
	"github.com/rs/zerolog"
)

func main() {
	log := newLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := getEnv("KAFKA_BOOTSTRAP_SERVERS", "localhost:19092")

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"linger.ms":          500,
		"batch.size":         100 * 1024,
		"compression.type":   "lz4",
		"acks":               -1,
		"enable.idempotence": true,
	})
	if err != nil {
		log.Error().Err(err).Msg("unable to create the producer")
		os.Exit(1)
	}
	defer producer.Close()

	feed, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"group.id":           getEnv("KAFKA_GROUP_ID", "cdcbox-relayd"),
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		log.Error().Err(err).Msg("unable to create the change feed consumer")
		os.Exit(1)
	}
	defer feed.Close()

	topic := getEnv("CHANGE_FEED_TOPIC", "outbox-changes")
	if err := feed.Subscribe(topic, nil); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("unable to subscribe to the change feed")
		os.Exit(1)
	}

	c := consumer.New(consumer.Settings{
		EventBusName:         getEnv("EVENT_BUS_NAME", "outbox"),
		OutboxTable:          getEnv("OUTBOX_TABLE", "outbox"),
		MaxEntriesPerPublish: getEnvInt("MAX_ENTRIES_PER_PUBLISH", 10),
	}, cbxkafka.New(producer), consumer.WithLogger(&cbxzerolog.Logger{Logger: log}))

	batchSize := getEnvInt("BATCH_SIZE", 100)
	log.Info().Str("topic", topic).Msg("relayd consuming the change feed")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch := pollBatch(feed, batchSize, time.Second)
		if len(batch) == 0 {
			continue
		}

		report, err := c.ProcessBatch(ctx, batch)
		if err != nil {
			// Offsets are not committed: the feed redelivers the batch and
			// downstream consumers deduplicate on the event id.
			log.Error().Err(err).Msg("batch processing failed, awaiting redelivery")
			continue
		}
		if _, err := feed.Commit(); err != nil {
			log.Error().Err(err).Msg("committing the change feed offsets")
		}
		log.Info().
			Int("received", report.Received).
			Int("skipped", report.Skipped).
			Int("published", report.Published).
			Int("failed", report.Failed).
			Msg("batch processed")
	}
}

// pollBatch reads up to max records from the feed, waiting at most wait for
// the batch to fill up.
func pollBatch(feed *kafka.Consumer, max int, wait time.Duration) [][]byte {
	var batch [][]byte
	deadline := time.Now().Add(wait)
	for len(batch) < max {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		msg, err := feed.ReadMessage(remaining)
		if err != nil {
			break
		}
		batch = append(batch, msg.Value)
	}
	return batch
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
