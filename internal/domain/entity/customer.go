package entity

import "strings"

type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func NewCustomer(name string) (*Customer, error) {
	c := &Customer{Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	return nil
}
