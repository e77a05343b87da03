//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parkfinder/service-parking/internal/application"
	"github.com/parkfinder/service-parking/internal/database"
	"github.com/parkfinder/service-parking/internal/domain/booking"
	"github.com/parkfinder/service-parking/internal/domain/spot"
	"github.com/parkfinder/service-parking/internal/events"
	"github.com/parkfinder/service-parking/internal/kafka"
)

// setupPostgres starts a PostgreSQL container, applies the SQL migrations and
// returns a connected GORM DB.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_parking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_parking sslmode=disable", pgHost, pgPort.Port())
	url := fmt.Sprintf("postgres://test:test@%s:%s/test_parking?sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(dsn, database.PoolConfig{}, zap.NewNop())
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(url, "migrations", zap.NewNop()))
	return db
}

// setupRedis starts a Redis container and returns a connected client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.Eventually(t, func() bool {
		return client.Ping(ctx).Err() == nil
	}, 15*time.Second, 500*time.Millisecond, "Redis not ready")
	return client
}

// setupKafka starts a Kafka container and pre-creates the service topics.
func setupKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	// confluent-local supports KRaft natively.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, events.TopicBookingEvents, events.TopicCatalogEvents)
	return brokers
}

// bookingStack holds wired-up application services over a given store and source.
type bookingStack struct {
	Sessions  *application.SessionStore
	Catalog   *application.CatalogCache
	Ledger    *booking.Ledger
	Discovery *application.DiscoveryService
	Bookings  *application.BookingService
}

func setupBookingStack(t *testing.T, store booking.KVStore, source spot.Source, publisher application.EventPublisher) *bookingStack {
	t.Helper()
	log, _ := zap.NewDevelopment()

	sessions := application.NewSessionStore()
	catalog := application.NewCatalogCache(source, log)
	require.NoError(t, catalog.Reload(context.Background()))
	ledger := booking.NewLedger(store, booking.DefaultLedgerKey)

	return &bookingStack{
		Sessions: sessions,
		Catalog:  catalog,
		Ledger:   ledger,
		Discovery: application.NewDiscoveryService(sessions, catalog, nil, application.DiscoveryDefaults{
			RadiusKm: 5, ResultCap: 30, CurrencySymbol: "₹",
		}, log),
		Bookings: application.NewBookingService(sessions, catalog, ledger,
			booking.NewHourlyFareEstimator(), booking.NewClockIDGenerator(nil), publisher, "₹", log),
	}
}

// bookSpot drives one session from position to a persisted booking.
func bookSpot(t *testing.T, stack *bookingStack, spotID, start, end string) *application.InteractionDTO {
	t.Helper()
	ctx := context.Background()

	sess, err := stack.Discovery.CreateSession(ctx)
	require.NoError(t, err)
	id := sess.ID.String()

	lat, lng := 18.5204, 73.8567
	_, err = stack.Discovery.SetPosition(ctx, id, application.SetPositionRequest{Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)
	_, err = stack.Bookings.SelectSpot(ctx, id, application.SelectSpotRequest{SpotID: spotID})
	require.NoError(t, err)
	_, err = stack.Bookings.EstimateFare(ctx, id, application.EstimateFareRequest{StartTime: start, EndTime: end})
	require.NoError(t, err)
	in, err := stack.Bookings.ConfirmBooking(ctx, id)
	require.NoError(t, err)
	return in
}

func ptr[T any](v T) *T { return &v }

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) *kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}

// staticSpots serves a fixed catalog without any backing store.
type staticSpots []spot.ParkingSpot

func (s staticSpots) Fetch(context.Context) ([]spot.RawSpot, error) {
	raw := make([]spot.RawSpot, 0, len(s))
	for _, p := range s {
		r := spot.RawSpot{
			ID:        spot.NewScalar(p.ID),
			Name:      p.Name,
			Latitude:  spot.NewScalar(strconv.FormatFloat(p.Latitude, 'f', -1, 64)),
			Longitude: spot.NewScalar(strconv.FormatFloat(p.Longitude, 'f', -1, 64)),
			Type:      p.Type,
		}
		if p.PricePerHour != nil {
			r.PricePerHour = spot.NewScalar(strconv.FormatFloat(*p.PricePerHour, 'f', -1, 64))
		}
		raw = append(raw, r)
	}
	return raw, nil
}
