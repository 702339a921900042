// Package transporttest provides helpers for testing transports and the code
// dispatching through them.
package transporttest

// Config is a plain transport.Config for tests.
type Config struct {
	Transport          string
	ClientID           string
	ConsumerGroup      string
	TCPAddress         string
	KafkaBrokers       []string
	RabbitMQURL        string
	NATSURL            string
	RedisURL           string
	HTTPServerAddress  string
	HTTPPublisherURL   string
	AWSRegion          string
	AWSAccountID       string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
}

func (c *Config) GetTransport() string          { return c.Transport }
func (c *Config) GetClientID() string           { return c.ClientID }
func (c *Config) GetConsumerGroup() string      { return c.ConsumerGroup }
func (c *Config) GetTCPAddress() string         { return c.TCPAddress }
func (c *Config) GetKafkaBrokers() []string     { return c.KafkaBrokers }
func (c *Config) GetRabbitMQURL() string        { return c.RabbitMQURL }
func (c *Config) GetNATSURL() string            { return c.NATSURL }
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetHTTPServerAddress() string  { return c.HTTPServerAddress }
func (c *Config) GetHTTPPublisherURL() string   { return c.HTTPPublisherURL }
func (c *Config) GetAWSRegion() string          { return c.AWSRegion }
func (c *Config) GetAWSAccountID() string       { return c.AWSAccountID }
func (c *Config) GetAWSAccessKeyID() string     { return c.AWSAccessKeyID }
func (c *Config) GetAWSSecretAccessKey() string { return c.AWSSecretAccessKey }
func (c *Config) GetAWSEndpoint() string        { return c.AWSEndpoint }
