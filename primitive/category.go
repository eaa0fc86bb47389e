package primitive

// CategoryEnum is a bit set of the conversions Coerce may perform.
// Conversions between values of the same kind are always allowed.
type CategoryEnum int

const (
	CategorySafeNumber   CategoryEnum = 1 << iota // number <-> number when the value is represented exactly
	CategoryUnsafeNumber                          // number <-> number with truncation or overflow
	CategoryTextNumber                            // string <-> number: textual number representation
	CategoryNumericBool                           // int <-> bool: 0, 1 representation of boolean values
	CategoryTextualBool                           // string <-> bool: yes, no, on, off, true, false representation of boolean values
	CategoryDatetime                              // string(RFC3339Nano) -> time.Time: textual date and time representation
	CategoryTimestamp                             // int(Unix seconds) -> time.Time: Unix timestamp representation
	CategoryDuration                              // string(2h45m) -> time.Duration: textual duration representation
	CategoryNanoseconds                           // int(nanoseconds) -> time.Duration: numerical (integer) duration representation
	CategorySeconds                               // float(seconds) -> time.Duration: numerical (floating-point) duration representation
	CategoryBase64                                // string(base64) -> []byte

	CategoryAll  CategoryEnum = (1 << iota) - 1 // all categories combined
	CategoryNone CategoryEnum = 0               // no categories selected
)

// DefaultCategories is what the engine allows unless configured otherwise.
const DefaultCategories = CategorySafeNumber | CategoryTextNumber | CategoryDatetime |
	CategoryNanoseconds | CategoryDuration | CategoryBase64

type ConversionPair struct {
	From, To KindEnum
}

// Category returns the category covering a conversion, CategoryNone when
// from and to are the same kind, or -1 when no category covers it.
func Category(pair ConversionPair) CategoryEnum {
	from, to := pair.From, pair.To

	switch {
	case from == to:
		return CategoryNone
	case from.IsNumber() && to.IsNumber():
		return CategorySafeNumber
	case from == KindString && to.IsNumber(), from.IsNumber() && to == KindString:
		return CategoryTextNumber
	case from.IsInteger() && to == KindBool, from == KindBool && to.IsInteger():
		return CategoryNumericBool
	case from == KindString && to == KindBool, from == KindBool && to == KindString:
		return CategoryTextualBool
	case from == KindString && to == KindTime:
		return CategoryDatetime
	case from.IsInteger() && to == KindTime:
		return CategoryTimestamp
	case from == KindString && to == KindDuration:
		return CategoryDuration
	case from.IsInteger() && to == KindDuration:
		return CategoryNanoseconds
	case from.IsFloat() && to == KindDuration:
		return CategorySeconds
	case from == KindString && to == KindBytes:
		return CategoryBase64
	default:
		return -1
	}
}

// Allows reports whether allowed covers the conversion. Number conversions
// are allowed by either number category; CategorySafeNumber values are
// range-checked by Coerce.
func (allowed CategoryEnum) Allows(pair ConversionPair) bool {
	category := Category(pair)

	switch category {
	case -1:
		return false
	case CategoryNone:
		return true
	case CategorySafeNumber:
		return allowed&(CategorySafeNumber|CategoryUnsafeNumber) != 0
	default:
		return allowed&category != 0
	}
}
