package network

import (
	"fmt"
	"net"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"
)

// Транспорты потока действий
const (
	TransportTCP = "tcp"
	TransportKCP = "kcp"
)

// Listen открывает слушатель выбранного транспорта. KCP даёт надёжный
// упорядоченный поток поверх UDP, поэтому протокол над ним тот же.
func Listen(transport, addr string) (net.Listener, error) {
	switch transport {
	case TransportTCP, "":
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("ошибка запуска TCP на %s: %w", addr, err)
		}
		return l, nil
	case TransportKCP:
		l, err := kcp.ListenWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("ошибка запуска KCP на %s: %w", addr, err)
		}
		return l, nil
	}
	return nil, fmt.Errorf("неизвестный транспорт %q", transport)
}

// Dial устанавливает соединение выбранного транспорта
func Dial(transport, addr string, timeout time.Duration) (net.Conn, error) {
	switch transport {
	case TransportTCP, "":
		return net.DialTimeout("tcp", addr, timeout)
	case TransportKCP:
		sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		tuneKCP(sess)
		return sess, nil
	}
	return nil, fmt.Errorf("неизвестный транспорт %q", transport)
}

// tuneKCP настройки KCP для игрового трафика
func tuneKCP(sess *kcp.UDPSession) {
	sess.SetStreamMode(true)
	sess.SetWriteDelay(false)
	sess.SetNoDelay(1, 20, 2, 1)
	sess.SetWindowSize(512, 512)
	sess.SetMtu(1400)
}

// prepareConn настраивает принятое соединение
func prepareConn(conn net.Conn) {
	switch c := conn.(type) {
	case *kcp.UDPSession:
		tuneKCP(c)
	case *net.TCPConn:
		_ = c.SetNoDelay(true)
		_ = c.SetKeepAlive(true)
	}
}
