package messaging

import (
	"fmt"
	"log"
	"time"

	"carelink-service/internal/app/config"

	"github.com/rabbitmq/amqp091-go"
)

const rabbitMQHeartbeat = 10 * time.Second

func NewRabbitMQ(driverConfig *config.DriverConfig) *amqp091.Connection {
	url := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		driverConfig.RabbitMQ.Username,
		driverConfig.RabbitMQ.Password,
		driverConfig.RabbitMQ.Host,
		driverConfig.RabbitMQ.Port,
	)
	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat: rabbitMQHeartbeat,
		Properties: amqp091.Table{
			"connection_name": "carelink-service",
		},
	})
	if err != nil {
		log.Fatalf("Failed to connect to rabbitMQ: %s", err.Error())
	}
	log.Println("Successfully connected to rabbitMQ")
	return conn
}
