package entity

import "strings"

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func NewCategory(name string) (*Category, error) {
	c := &Category{Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	return nil
}
