package config

type (
	DriverConfig struct {
		MongoDB  MongoDB
		Redis    Redis
		RabbitMQ RabbitMQ
		Logger   Logger
	}

	MongoDB struct {
		Port     string
		Host     string
		DbName   string
		Username string
		Password string
	}

	Redis struct {
		Host     string
		Port     string
		Password string
	}

	RabbitMQ struct {
		Port     string
		Host     string
		Username string
		Password string
	}

	Logger struct {
		Level               string
		OutputFileName      string
		OutputErrorFileName string
	}

	InternalConfig struct {
		App            App
		JWT            JWT
		PaymentGateway PaymentGateway
	}

	App struct {
		Env                       string
		Port                      string
		Version                   string
		Address                   string
		EndpointPrefix            string
		EventQueue                string
		MaxRequests               int
		ShutdownTimeout           int
		MaxTimeRequestsPerSeconds int
		RequestTimeoutInSeconds   int
	}

	JWT struct {
		Secret        string
		ExpTimeInHour int
	}

	PaymentGateway struct {
		BaseUrl                 string
		SecretKey               string
		WebhookSecret           string
		CallbackURL             string
		ReturnURL               string
		RequestTimeoutInSeconds int
		MaxRequestsPerSecond    int
	}
)
