package wire

// Query is the frontend 'Q' message.
type Query struct {
	SQL string
}

// DecodeQuery decodes the body of a 'Q' frontend message.
func DecodeQuery(s *Source) (*Query, error) {
	sql, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	return &Query{SQL: string(sql)}, nil
}

// CommandComplete is the backend 'C' message.
type CommandComplete struct {
	Tag string
}

// DecodeCommandComplete decodes the body of a 'C' backend message.
func DecodeCommandComplete(s *Source) (*CommandComplete, error) {
	tag, err := s.TakeUntilNull()
	if err != nil {
		return nil, err
	}
	return &CommandComplete{Tag: string(tag)}, nil
}

// DataRow is the backend 'D' message.
type DataRow struct {
	Columns []Value
}

// DecodeDataRow decodes the body of a 'D' backend message.
func DecodeDataRow(s *Source) (*DataRow, error) {
	count, err := s.TakeU16()
	if err != nil {
		return nil, err
	}
	cols, err := decodeValues(s, int(count))
	if err != nil {
		return nil, err
	}
	return &DataRow{Columns: cols}, nil
}

// Field describes one column of a RowDescription.
type Field struct {
	Name            string
	ColumnOID       uint32
	ColumnAttrNum   uint16
	TypeOID         uint32
	TypeSize        int16
	TypeModifier    int32
	Format          uint16
}

// RowDescription is the backend 'T' message.
type RowDescription struct {
	Fields []Field
}

// DecodeRowDescription decodes the body of a 'T' backend message.
func DecodeRowDescription(s *Source) (*RowDescription, error) {
	count, err := s.TakeU16()
	if err != nil {
		return nil, err
	}
	fields := make([]Field, count)
	for i := range fields {
		f, err := decodeField(s)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return &RowDescription{Fields: fields}, nil
}

func decodeField(s *Source) (Field, error) {
	name, err := s.TakeUntilNull()
	if err != nil {
		return Field{}, err
	}
	columnOID, err := s.TakeU32()
	if err != nil {
		return Field{}, err
	}
	columnAttrNum, err := s.TakeU16()
	if err != nil {
		return Field{}, err
	}
	typeOID, err := s.TakeU32()
	if err != nil {
		return Field{}, err
	}
	typeSize, err := s.TakeI16()
	if err != nil {
		return Field{}, err
	}
	typeModifier, err := s.TakeI32()
	if err != nil {
		return Field{}, err
	}
	format, err := s.TakeU16()
	if err != nil {
		return Field{}, err
	}
	if format != 0 && format != 1 {
		return Field{}, unknown("row description format code %d", format)
	}
	return Field{
		Name:          string(name),
		ColumnOID:     columnOID,
		ColumnAttrNum: columnAttrNum,
		TypeOID:       typeOID,
		TypeSize:      typeSize,
		TypeModifier:  typeModifier,
		Format:        format,
	}, nil
}
