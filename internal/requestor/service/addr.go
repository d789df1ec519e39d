package service

import "strconv"

func fmtAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
