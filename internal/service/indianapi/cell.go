package indianapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// cell is one entry of a dataset row. The API mixes quoted and bare numbers.
type cell struct {
	text  string
	num   float64
	isNum bool
}

func (c *cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &c.text)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		c.text = string(b)
		return nil
	}
	c.text, c.num, c.isNum = string(b), v, true
	return nil
}

func (c cell) number() (float64, bool) {
	if c.isNum {
		return c.num, true
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(c.text), ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
