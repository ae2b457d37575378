package session

import (
	"net"
	"strconv"

	"github.com/go-mysql-org/go-mysql/client"
	"github.com/go-mysql-org/go-mysql/mysql"
)

// Endpoint is the connection target captured when a session first opens,
// so a later Reopen needs no arguments.
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
}

// Addr returns the host:port dial address.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Conn is the slice of the MySQL client a session needs. *client.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	Ping() error
	Execute(command string, args ...interface{}) (*mysql.Result, error)
	Close() error
}

// Dialer opens a driver connection to an endpoint.
type Dialer func(ep Endpoint) (Conn, error)

// Dial connects with the go-mysql client.
func Dial(ep Endpoint) (Conn, error) {
	return client.Connect(ep.Addr(), ep.Username, ep.Password, ep.DBName)
}
