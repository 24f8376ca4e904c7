package clickhouse

import "time"

// ClientConfig describes how to reach the server and size the pool.
type ClientConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxExecTime  time.Duration

	// UseHTTP selects the HTTP interface (port 8123) over the native protocol.
	UseHTTP      bool
	AsyncInsert  bool
	WaitForAsync bool

	ConnectRetries uint64
}

type ClientOption func(*ClientConfig)

func WithHost(host string) ClientOption {
	return func(c *ClientConfig) { c.Host = host }
}

func WithPort(port int) ClientOption {
	return func(c *ClientConfig) { c.Port = port }
}

func WithDatabase(name string) ClientOption {
	return func(c *ClientConfig) { c.Database = name }
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User, c.Password = user, password
	}
}

// WithMaxConnections bounds the sql.DB pool.
func WithMaxConnections(open, idle int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns, c.MaxIdleConns = open, idle
	}
}

func WithTimeouts(dial, read, write time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DialTimeout, c.ReadTimeout, c.WriteTimeout = dial, read, write
	}
}

func WithHTTP(enabled bool) ClientOption {
	return func(c *ClientConfig) { c.UseHTTP = enabled }
}

// WithAsyncInsert turns on server-side insert buffering. wait makes inserts
// return only after the buffer is flushed.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert, c.WaitForAsync = enabled, wait
	}
}

// WithMaxExecutionTime caps query duration; sub-second values round down.
func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.MaxExecTime = d }
}

// WithConnectRetries retries the initial ping n times with exponential backoff.
func WithConnectRetries(n uint64) ClientOption {
	return func(c *ClientConfig) { c.ConnectRetries = n }
}
