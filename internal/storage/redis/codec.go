package redis

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/smart-trolley/internal/domain/checkout"
)

func encodeSession(s *checkout.Session) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	e.FieldStart("user_id")
	e.Str(s.UserID)
	e.FieldStart("state")
	e.Str(string(s.State))
	e.FieldStart("customer")
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Customer.Name)
	e.FieldStart("phone")
	e.Str(s.Customer.Phone)
	e.FieldStart("email")
	e.Str(s.Customer.Email)
	e.ObjEnd()
	e.FieldStart("payment_reference")
	e.Str(s.PaymentReference)
	e.FieldStart("quoted_total")
	e.Str(s.QuotedTotal.String())
	e.FieldStart("pay_request")
	if pr := s.PayRequest; pr != nil {
		e.ObjStart()
		e.FieldStart("payee_id")
		e.Str(pr.PayeeID)
		e.FieldStart("payee_name")
		e.Str(pr.PayeeName)
		e.FieldStart("amount")
		e.Str(pr.Amount.String())
		e.FieldStart("currency")
		e.Str(pr.Currency)
		e.FieldStart("note")
		e.Str(pr.Note)
		e.FieldStart("uri")
		e.Str(pr.URI)
		e.ObjEnd()
	} else {
		e.Null()
	}
	e.FieldStart("order_id")
	e.Str(s.OrderID)
	e.FieldStart("created_at")
	e.Str(s.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("updated_at")
	e.Str(s.UpdatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}

func decodeSession(data []byte) (*checkout.Session, error) {
	var s checkout.Session
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = d.Str()
		case "user_id":
			s.UserID, err = d.Str()
		case "state":
			var v string
			v, err = d.Str()
			s.State = checkout.State(v)
		case "customer":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "name":
					s.Customer.Name, err = d.Str()
				case "phone":
					s.Customer.Phone, err = d.Str()
				case "email":
					s.Customer.Email, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
		case "payment_reference":
			s.PaymentReference, err = d.Str()
		case "quoted_total":
			s.QuotedTotal, err = decodeDecimal(d)
		case "pay_request":
			if d.Next() == jx.Null {
				return d.Null()
			}
			pr := &checkout.PayRequest{}
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "payee_id":
					pr.PayeeID, err = d.Str()
				case "payee_name":
					pr.PayeeName, err = d.Str()
				case "amount":
					pr.Amount, err = decodeDecimal(d)
				case "currency":
					pr.Currency, err = d.Str()
				case "note":
					pr.Note, err = d.Str()
				case "uri":
					pr.URI, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
			s.PayRequest = pr
		case "order_id":
			s.OrderID, err = d.Str()
		case "created_at":
			s.CreatedAt, err = decodeTime(d)
		case "updated_at":
			s.UpdatedAt, err = decodeTime(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	v, err := d.Str()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(v)
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	v, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, v)
}
