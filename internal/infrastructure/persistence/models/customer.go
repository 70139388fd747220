package models

import (
	"time"

	"github.com/arflow/backend/internal/domain/customer"
)

// CustomerModel is the persistence model for the Customer aggregate
type CustomerModel struct {
	OrgAggregateModel
	CustomerNumber   string          `gorm:"type:varchar(30);not null;index"`
	CompanyName      string          `gorm:"type:varchar(200);not null"`
	ContactName      string          `gorm:"type:varchar(200)"`
	Email            string          `gorm:"type:varchar(200)"`
	Phone            string          `gorm:"type:varchar(50)"`
	AddressLine1     string          `gorm:"type:varchar(200)"`
	AddressLine2     string          `gorm:"type:varchar(200)"`
	City             string          `gorm:"type:varchar(100)"`
	State            string          `gorm:"type:varchar(100)"`
	PostalCode       string          `gorm:"type:varchar(20)"`
	Country          string          `gorm:"type:varchar(100)"`
	PaymentTermsDays int             `gorm:"not null;default:30"`
	Status           customer.Status `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	ERPReference     string          `gorm:"column:erp_reference;type:varchar(50);index"`
	Source           customer.Source `gorm:"type:varchar(20);not null;default:'MANUAL'"`
	LastSyncedAt     *time.Time
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model to a domain Customer
func (m *CustomerModel) ToDomain() *customer.Customer {
	return &customer.Customer{
		OrgAggregateRoot: m.OrgAggregateModel.toDomain(),
		CustomerNumber:   m.CustomerNumber,
		CompanyName:      m.CompanyName,
		ContactName:      m.ContactName,
		Email:            m.Email,
		Phone:            m.Phone,
		BillingAddress: customer.Address{
			Line1:      m.AddressLine1,
			Line2:      m.AddressLine2,
			City:       m.City,
			State:      m.State,
			PostalCode: m.PostalCode,
			Country:    m.Country,
		},
		PaymentTermsDays: m.PaymentTermsDays,
		Status:           m.Status,
		ERPReference:     m.ERPReference,
		Source:           m.Source,
		LastSyncedAt:     m.LastSyncedAt,
	}
}

// CustomerModelFromDomain creates a model from a domain Customer
func CustomerModelFromDomain(c *customer.Customer) *CustomerModel {
	m := &CustomerModel{
		CustomerNumber:   c.CustomerNumber,
		CompanyName:      c.CompanyName,
		ContactName:      c.ContactName,
		Email:            c.Email,
		Phone:            c.Phone,
		AddressLine1:     c.BillingAddress.Line1,
		AddressLine2:     c.BillingAddress.Line2,
		City:             c.BillingAddress.City,
		State:            c.BillingAddress.State,
		PostalCode:       c.BillingAddress.PostalCode,
		Country:          c.BillingAddress.Country,
		PaymentTermsDays: c.PaymentTermsDays,
		Status:           c.Status,
		ERPReference:     c.ERPReference,
		Source:           c.Source,
		LastSyncedAt:     c.LastSyncedAt,
	}
	m.FromDomainOrgAggregateRoot(c.OrgAggregateRoot)
	return m
}
