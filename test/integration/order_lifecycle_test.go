package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/gofiber/fiber/v3"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/cleanerspos/internal/api/httpapi"
	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cleanerspos/internal/messaging/resilient"
	"github.com/vladislavdragonenkov/cleanerspos/internal/service/checkout"
	"github.com/vladislavdragonenkov/cleanerspos/internal/storage/memory"
)

// OrderLifecycleTestSuite гоняет заказ через HTTP API, кассу, in-memory хранилище
// и Kafka producer на моках sarama.
type OrderLifecycleTestSuite struct {
	suite.Suite
	app    *fiber.App
	broker *mocks.SyncProducer

	mu     sync.Mutex
	events []domain.OrderEvent
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.ErrorLevel)
	logger := baseLogger.WithField("component", "integration-test")

	s.events = nil
	s.broker = mocks.NewSyncProducer(s.T(), nil)
	retry := resilient.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	publisher := resilient.NewPublisher(kafka.NewProducerFromClient(s.broker, ""), retry, nil, logger)

	db := memory.NewDatabase()
	seq := memory.NewSequence(db, "nextId", memory.WithStart(7000))
	svc := checkout.New(memory.NewCustomerRepository(db), memory.NewOrderRepository(db), seq,
		checkout.WithEventPublisher(publisher),
		checkout.WithLogger(logger),
	)
	s.app = httpapi.NewApp(httpapi.NewHandler(svc, seq, logger))
}

func (s *OrderLifecycleTestSuite) TearDownTest() {
	require.NoError(s.T(), s.broker.Close())
}

// expectEvents ставит ожидания брокера и запоминает опубликованные события.
func (s *OrderLifecycleTestSuite) expectEvents(n int) {
	for i := 0; i < n; i++ {
		s.broker.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(s.captureEvent)
	}
}

func (s *OrderLifecycleTestSuite) captureEvent(msg *sarama.ProducerMessage) error {
	if msg.Topic != kafka.TopicOrderEvents {
		return fmt.Errorf("unexpected topic %q", msg.Topic)
	}
	raw, err := msg.Value.Encode()
	if err != nil {
		return err
	}
	var event domain.OrderEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return err
	}
	key, err := msg.Key.Encode()
	if err != nil {
		return err
	}
	if string(key) != event.OrderID {
		return fmt.Errorf("message key %q does not match order %q", key, event.OrderID)
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *OrderLifecycleTestSuite) eventTypes() []domain.OrderEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]domain.OrderEventType, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.Type)
	}
	return types
}

func (s *OrderLifecycleTestSuite) do(method, path, body string, out any) int {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req)
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type orderView struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customerId"`
	TicketNumber string `json:"ticketNumber"`
	OrderTotal   string `json:"orderTotal"`
	Balance      string `json:"balance"`
	Status       string `json:"status"`
	State        string `json:"state"`
	Voided       bool   `json:"voided"`
	OrderNote    string `json:"orderNote"`
	SubOrders    []struct {
		ID    uint64 `json:"id"`
		Total string `json:"total"`
	} `json:"subOrders"`
}

const dropoffBody = `{
	"customer": {"firstName": "Maria", "lastName": "Lopez", "phoneNumber": "555-0199"},
	"store": "Main St",
	"employee": "kim",
	"note": "starch",
	"cart": [
		{"type": "Dryclean", "items": [{"name": "Suit", "price": 15.00, "quantity": 1}, {"name": "Tie", "price": 4.25, "quantity": 2}]},
		{"type": "Laundry", "items": [{"name": "Shirt", "price": 2.75, "quantity": 4}]}
	]
}`

func (s *OrderLifecycleTestSuite) TestDropoffPayPickup() {
	s.expectEvents(4)

	var order orderView
	require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/orders", dropoffBody, &order))
	require.Len(s.T(), order.SubOrders, 2)
	require.Equal(s.T(), uint64(7000), order.SubOrders[0].ID)
	require.Equal(s.T(), uint64(7001), order.SubOrders[1].ID)
	require.Equal(s.T(), "23.50", order.SubOrders[0].Total)
	require.Equal(s.T(), "11.00", order.SubOrders[1].Total)
	require.Equal(s.T(), "34.50", order.OrderTotal)
	require.Equal(s.T(), "7000", order.TicketNumber)

	// частичная оплата наличными, остаток чеком
	var paid orderView
	require.Equal(s.T(), http.StatusOK, s.do(http.MethodPost, "/orders/"+order.ID+"/payments",
		`{"type": "Cash", "amount": 20, "employee": "kim"}`, &paid))
	require.Equal(s.T(), "14.50", paid.Balance)
	require.Equal(s.T(), domain.OrderStatusPartiallyPaid, paid.Status)

	require.Equal(s.T(), http.StatusOK, s.do(http.MethodPost, "/orders/"+order.ID+"/payments",
		`{"type": "Check", "amount": 14.50, "employee": "kim", "checkNumber": "5521"}`, &paid))
	require.Equal(s.T(), "0.00", paid.Balance)
	require.Equal(s.T(), "starch\nCheck #5521", paid.OrderNote)

	var picked orderView
	require.Equal(s.T(), http.StatusOK, s.do(http.MethodPost, "/orders/"+order.ID+"/pickup", `{"employee": "lee"}`, &picked))
	require.Equal(s.T(), domain.OrderStatusPickedUp, picked.Status)

	require.Equal(s.T(), []domain.OrderEventType{
		domain.OrderEventCreated,
		domain.OrderEventPaid,
		domain.OrderEventPaid,
		domain.OrderEventPickedUp,
	}, s.eventTypes())

	// клиент находится по номеру квитанции
	var found []struct {
		ID string `json:"id"`
	}
	require.Equal(s.T(), http.StatusOK, s.do(http.MethodGet, "/customers?ticket=7000", "", &found))
	require.Len(s.T(), found, 1)
	require.Equal(s.T(), order.CustomerID, found[0].ID)
}

func (s *OrderLifecycleTestSuite) TestVoidBlocksPaymentAndPickup() {
	s.expectEvents(2)

	var order orderView
	require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/orders", dropoffBody, &order))

	var voided orderView
	require.Equal(s.T(), http.StatusOK, s.do(http.MethodPost, "/orders/"+order.ID+"/void", `{"employee": "kim"}`, &voided))
	require.True(s.T(), voided.Voided)

	require.Equal(s.T(), http.StatusBadRequest, s.do(http.MethodPost, "/orders/"+order.ID+"/payments",
		`{"type": "Cash", "amount": 5, "employee": "kim"}`, nil))
	require.Equal(s.T(), http.StatusBadRequest, s.do(http.MethodPost, "/orders/"+order.ID+"/pickup", `{"employee": "kim"}`, nil))
	require.Equal(s.T(), http.StatusBadRequest, s.do(http.MethodPost, "/orders/"+order.ID+"/void", `{"employee": "kim"}`, nil))

	require.Equal(s.T(), []domain.OrderEventType{domain.OrderEventCreated, domain.OrderEventVoided}, s.eventTypes())
}

func (s *OrderLifecycleTestSuite) TestRejectedCartKeepsSequence() {
	s.expectEvents(1)

	bad := `{"customer": {"firstName": "A", "lastName": "B"}, "cart": [{"type": "Laundry", "items": []}]}`
	require.Equal(s.T(), http.StatusBadRequest, s.do(http.MethodPost, "/orders", bad, nil))

	var seq struct {
		Value uint64 `json:"value"`
	}
	require.Equal(s.T(), http.StatusOK, s.do(http.MethodGet, "/sequence", "", &seq))
	require.Equal(s.T(), uint64(7000), seq.Value)

	var order orderView
	require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/orders", dropoffBody, &order))
	require.Equal(s.T(), uint64(7000), order.SubOrders[0].ID)
}

func (s *OrderLifecycleTestSuite) TestBrokerHiccupIsRetried() {
	s.broker.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	s.expectEvents(1)

	var order orderView
	require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/orders", dropoffBody, &order))
	require.Equal(s.T(), []domain.OrderEventType{domain.OrderEventCreated}, s.eventTypes())
}

func (s *OrderLifecycleTestSuite) TestBrokerOutageDoesNotFailCheckout() {
	s.broker.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	s.broker.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	var order orderView
	require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/orders", dropoffBody, &order))
	require.NotEmpty(s.T(), order.ID)
	require.Empty(s.T(), s.eventTypes())
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
